package playback

// Span is a vertical extent in rows, [Top, Bottom).
type Span struct {
	Top    int
	Bottom int
}

// Height is the number of rows in the span.
func (s Span) Height() int { return s.Bottom - s.Top }

// NeedsScroll reports whether elem is fully or partially outside view.
func NeedsScroll(elem, view Span) bool {
	return elem.Top < view.Top || elem.Bottom > view.Bottom
}

// CenterOn returns the viewport top that centres elem in a viewport of
// height rows over content rows, clamped to the content.
func CenterOn(elem Span, height, content int) int {
	top := elem.Top + elem.Height()/2 - height/2
	if top > content-height {
		top = content - height
	}
	if top < 0 {
		top = 0
	}
	return top
}

// Follow keeps elem visible: when it is outside view the viewport is
// re-centred on it, otherwise the viewport stays put.
func Follow(elem, view Span, content int) (top int, moved bool) {
	if !NeedsScroll(elem, view) {
		return view.Top, false
	}
	top = CenterOn(elem, view.Height(), content)
	return top, top != view.Top
}
