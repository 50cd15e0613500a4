package detection

// window is a fixed-capacity FIFO of levels. Pushing into a full window
// evicts the oldest entry.
type window struct {
	buf   []float64
	start int
	n     int
}

func newWindow(capacity int) *window {
	return &window{buf: make([]float64, capacity)}
}

func (w *window) push(v float64) {
	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = v
		w.n++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
}

func (w *window) len() int { return w.n }

func (w *window) at(i int) float64 {
	return w.buf[(w.start+i)%len(w.buf)]
}

func (w *window) mean() float64 {
	if w.n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < w.n; i++ {
		sum += w.at(i)
	}
	return sum / float64(w.n)
}

// variance returns the population variance of the entries around ref.
func (w *window) variance(ref float64) float64 {
	if w.n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < w.n; i++ {
		d := w.at(i) - ref
		sum += d * d
	}
	return sum / float64(w.n)
}

func (w *window) values() []float64 {
	out := make([]float64, w.n)
	for i := range out {
		out[i] = w.at(i)
	}
	return out
}

func (w *window) clear() {
	w.start = 0
	w.n = 0
}
