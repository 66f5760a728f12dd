package editor

// SetBorder paints the border run containing frame pixel (fx, fy) with
// ctx's ink. Frame coordinates place the screen at the border's left and
// top offsets. Points inside the screen area are ignored.
func (img *Image) SetBorder(ctx Context, fx, fy int) error {
	d := img.desc
	if !d.HasBorder() {
		return ErrNoBorder
	}
	u, ok := d.Border.Unit(fx, fy)
	if !ok {
		return nil
	}
	if img.stack == nil {
		d.Border.SetUnitColor(d.BorderBlock(img.data), u, ctx.Ink)
		return nil
	}
	l := img.stack.ActiveLayer()
	if img.erasing(ctx.Ink) {
		l.BorderMask[u] = false
	} else {
		d.Border.SetUnitColor(l.Border, u, ctx.Ink)
		l.BorderMask[u] = true
	}
	img.Commit()
	return nil
}

// BorderColor reads the committed border color at frame pixel (fx, fy).
func (img *Image) BorderColor(fx, fy int) (int, bool) {
	d := img.desc
	if !d.HasBorder() {
		return 0, false
	}
	return d.Border.ColorAt(d.BorderBlock(img.data), fx, fy)
}
