package contracts

// TradingLine is a derived view-projection of one order leg for chart
// rendering. It is regenerated whenever the order set changes and is
// never independently persisted.
type TradingLine struct {
	ID    string  `json:"id"`
	Ref   LegRef  `json:"ref"`
	Price float64 `json:"price"`
	Label string  `json:"label"`
	Color string  `json:"color"`
}

// Leg display colors, matching the chart palette.
const (
	ColorEntry = "#3B82F6" // blue
	ColorStop  = "#EF4444" // red
	ColorTP1   = "#10B981" // green
	ColorTP2   = "#06B6D4" // cyan
)

// LinesFor projects one order into its trading lines, one per present leg.
func LinesFor(o *BracketOrder) []TradingLine {
	lines := make([]TradingLine, 0, 4)

	if o.EntryPrice > 0 {
		lines = append(lines, TradingLine{
			Ref:   LegRef{OrderID: o.ID, LegType: LegEntry},
			Price: o.EntryPrice,
			Label: "Entry",
			Color: ColorEntry,
		})
	}

	if o.StopLossPrice > 0 {
		lines = append(lines, TradingLine{
			Ref:   LegRef{OrderID: o.ID, LegType: LegStop},
			Price: o.StopLossPrice,
			Label: "Stop Loss",
			Color: ColorStop,
		})
	}

	for i, tp := range o.TakeProfitLevels {
		leg, label, color := LegTP1, "TP1", ColorTP1
		if i == 1 {
			leg, label, color = LegTP2, "TP2", ColorTP2
		}
		lines = append(lines, TradingLine{
			Ref:   LegRef{OrderID: o.ID, LegType: leg},
			Price: tp.Price,
			Label: label,
			Color: color,
		})
	}

	for i := range lines {
		lines[i].ID = lines[i].Ref.LineID()
	}

	return lines
}
