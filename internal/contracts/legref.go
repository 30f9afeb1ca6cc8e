package contracts

import (
	"fmt"
	"strings"
)

// LegType identifies one price-bearing component of a bracket order.
type LegType string

const (
	LegEntry LegType = "entry"
	LegStop  LegType = "stop"
	LegTP1   LegType = "tp1"
	LegTP2   LegType = "tp2"
)

// Valid reports whether the leg type is one of the four known tokens.
func (l LegType) Valid() bool {
	switch l {
	case LegEntry, LegStop, LegTP1, LegTP2:
		return true
	}
	return false
}

// LegRef is a typed reference to one leg of one order. It is constructed
// once at the UI boundary and passed as a structured value through the
// core; the flat string form exists only for list rendering at the edge.
type LegRef struct {
	OrderID string  `json:"order_id"`
	LegType LegType `json:"leg_type"`
}

// LineID renders the flat UI key "order-<orderId>-<legType>".
func (r LegRef) LineID() string {
	return fmt.Sprintf("order-%s-%s", r.OrderID, r.LegType)
}

// ParseLineID recovers a LegRef from the flat UI key. Order ids may
// themselves contain hyphens, so the id is matched greedily and the final
// hyphen-delimited token is taken as the leg type.
func ParseLineID(lineID string) (LegRef, error) {
	rest, ok := strings.CutPrefix(lineID, "order-")
	if !ok {
		return LegRef{}, fmt.Errorf("malformed line id %q", lineID)
	}

	idx := strings.LastIndex(rest, "-")
	if idx <= 0 || idx == len(rest)-1 {
		return LegRef{}, fmt.Errorf("malformed line id %q", lineID)
	}

	ref := LegRef{
		OrderID: rest[:idx],
		LegType: LegType(rest[idx+1:]),
	}
	if !ref.LegType.Valid() {
		return LegRef{}, fmt.Errorf("unknown leg type %q in line id %q", ref.LegType, lineID)
	}

	return ref, nil
}
