package cells

import "container/heap"

// floodItem is a pixel waiting in the flooding queue. Pixels at the same
// level leave the queue in the order they entered it.
type floodItem struct {
	level float32
	age   int
	index int
}

type floodQueue []floodItem

func (q floodQueue) Len() int { return len(q) }

func (q floodQueue) Less(i, j int) bool {
	if q[i].level != q[j].level {
		return q[i].level < q[j].level
	}
	return q[i].age < q[j].age
}

func (q floodQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *floodQueue) Push(x any) { *q = append(*q, x.(floodItem)) }

func (q *floodQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// watershed floods landscape from the labeled markers, lowest level first,
// with 4-connectivity. Only pixels where mask is nonzero are labeled;
// markers outside the mask are ignored. Every masked pixel reachable from a
// marker ends up with that marker's label, the rest stay 0.
func watershed(landscape []float32, markers []int32, mask []uint8, rows, cols int) []int32 {
	out := make([]int32, rows*cols)

	q := make(floodQueue, 0, rows+cols)
	age := 0
	for i, m := range markers {
		if m == 0 || mask[i] == 0 {
			continue
		}
		out[i] = m
		q = append(q, floodItem{level: landscape[i], age: age, index: i})
		age++
	}
	heap.Init(&q)

	for q.Len() > 0 {
		it := heap.Pop(&q).(floodItem)
		row, col := it.index/cols, it.index%cols
		label := out[it.index]

		visit := func(n int) {
			if out[n] != 0 || mask[n] == 0 {
				return
			}
			out[n] = label
			heap.Push(&q, floodItem{level: landscape[n], age: age, index: n})
			age++
		}
		if row > 0 {
			visit(it.index - cols)
		}
		if col > 0 {
			visit(it.index - 1)
		}
		if col < cols-1 {
			visit(it.index + 1)
		}
		if row < rows-1 {
			visit(it.index + cols)
		}
	}
	return out
}
