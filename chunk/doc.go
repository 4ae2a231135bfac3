// Package chunk groups parsed records into ordered, size-bounded chunks
// for embedding. It supports sequential fixed windows and grouped
// adaptive windows sized by an estimated token budget.
package chunk
