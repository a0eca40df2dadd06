package grid

// ForEach calls fn for every index in the half-open box [low, high), with
// axis 0 varying fastest. The slice passed to fn is reused between calls and
// must be copied if retained. An empty box (high[d] <= low[d] on any axis)
// produces no calls.
func ForEach(low, high []int, fn func(idx []int)) {
	dim := len(low)
	if dim == 0 || len(high) != dim {
		return
	}
	for d := 0; d < dim; d++ {
		if high[d] <= low[d] {
			return
		}
	}

	idx := append([]int(nil), low...)
	for {
		fn(idx)

		// Odometer increment
		d := 0
		for ; d < dim; d++ {
			idx[d]++
			if idx[d] < high[d] {
				break
			}
			idx[d] = low[d]
		}
		if d == dim {
			return
		}
	}
}

// ForEachIndex visits every index of g in storage order.
func (g *Grid[T]) ForEachIndex(fn func(idx []int, v T)) {
	low := make([]int, len(g.size))
	i := 0
	ForEach(low, g.size, func(idx []int) {
		fn(idx, g.data[i])
		i++
	})
}

// Clamp limits idx in place to the grid bounds. This is the zero-flux
// Neumann boundary used by neighbourhood searches.
func (g *Grid[T]) Clamp(idx []int) {
	for d := range idx {
		switch {
		case idx[d] < 0:
			idx[d] = 0
		case idx[d] >= g.size[d]:
			idx[d] = g.size[d] - 1
		}
	}
}
