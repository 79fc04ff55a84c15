package cartsync

import "github.com/shopspring/decimal"

// State is the ordered client cart. Methods never mutate the receiver; they
// return the new state.
type State struct {
	Lines []Line `json:"lines"`
}

func (s State) IsEmpty() bool { return len(s.Lines) == 0 }

func (s State) index(productID uint) int {
	for i, l := range s.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	lines := make([]Line, len(s.Lines))
	copy(lines, s.Lines)
	return State{Lines: lines}
}

// Find returns the line for productID.
func (s State) Find(productID uint) (Line, bool) {
	if i := s.index(productID); i >= 0 {
		return s.Lines[i], true
	}
	return Line{}, false
}

// Add appends l, or sums its quantity into the existing line for the same
// product. Lines with a non-positive quantity are ignored.
func (s State) Add(l Line) State {
	if l.Quantity < 1 {
		return s
	}
	out := s.clone()
	if i := out.index(l.ProductID); i >= 0 {
		out.Lines[i].Quantity += l.Quantity
		return out
	}
	out.Lines = append(out.Lines, l)
	return out
}

// Update sets the quantity of a product's line. A quantity of zero or less
// removes it. Unknown products leave the state as is.
func (s State) Update(productID uint, qty int) State {
	i := s.index(productID)
	if i < 0 {
		return s
	}
	if qty <= 0 {
		return s.Remove(productID)
	}
	out := s.clone()
	out.Lines[i].Quantity = qty
	return out
}

func (s State) Remove(productID uint) State {
	out := State{Lines: make([]Line, 0, len(s.Lines))}
	for _, l := range s.Lines {
		if l.ProductID != productID {
			out.Lines = append(out.Lines, l)
		}
	}
	return out
}

func (s State) Clear() State { return State{Lines: []Line{}} }

// Count is the badge number: the sum of all quantities.
func (s State) Count() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}

// Total is Σ price × qty rounded to cents.
func (s State) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.Round(2)
}

// Normalize merges duplicate products and drops lines without a positive
// quantity, keeping first-seen order.
func (s State) Normalize() State {
	out := State{Lines: make([]Line, 0, len(s.Lines))}
	for _, l := range s.Lines {
		out = out.Add(l)
	}
	return out
}
