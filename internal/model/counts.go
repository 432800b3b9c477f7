package model

// CountTable maps a grouping key to the number of records carrying it.
// Entries only come into existence through Add, so every stored count is
// at least one. Iteration order is unspecified.
type CountTable map[string]int

// Add increments the count for key.
func (c CountTable) Add(key string) {
	c[key]++
}

// Total returns the sum of all counts.
func (c CountTable) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Len returns the number of distinct keys.
func (c CountTable) Len() int { return len(c) }

// GroupCount is one key/count pair, used where a stable listing is needed.
type GroupCount struct {
	Key   string `json:"key" yaml:"key"`
	Count int64  `json:"count" yaml:"count"`
}
