package reconcile

import (
	"fmt"
	"sort"
)

// Counts: число растений по подписи (имени посадившего). Кэш для отображения,
// не источник истины.
type Counts map[string]int

func (c Counts) add(label string) {
	c[label]++
}

func (c Counts) remove(label string) {
	if c[label] <= 1 {
		delete(c, label)
		return
	}
	c[label]--
}

func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func (c Counts) Total() int {
	total := 0
	for _, v := range c {
		total += v
	}
	return total
}

// Labels: подписи по убыванию количества, при равенстве по алфавиту.
func (c Counts) Labels() []string {
	labels := make([]string, 0, len(c))
	for k := range c {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		if c[labels[i]] != c[labels[j]] {
			return c[labels[i]] > c[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}

// Legend: строки для подписи на снимке доски.
func (c Counts) Legend() []string {
	lines := []string{fmt.Sprintf("Plants: %d", c.Total())}
	for _, label := range c.Labels() {
		lines = append(lines, fmt.Sprintf("%s: %d", label, c[label]))
	}
	return lines
}
