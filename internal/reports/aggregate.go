package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/weavetrack/weavetrack/internal/design"
)

var hundred = decimal.NewFromInt(100)

func beamsByDesign(beams []design.BeamConfig) map[design.Key][]design.BeamConfig {
	out := make(map[design.Key][]design.BeamConfig)
	for _, b := range beams {
		k := design.Key{OrderID: b.OrderID, DesignNumber: b.DesignNumber}
		out[k] = append(out[k], b)
	}
	return out
}

// BuildDesignWise joins ledger rows with their beam configuration. Each beam
// color yields remaining_sets × multiplier pieces.
func BuildDesignWise(records []LedgerRecord, beams []design.BeamConfig) DesignWise {
	index := beamsByDesign(beams)
	report := DesignWise{Rows: make([]DesignRow, 0, len(records))}
	for _, r := range records {
		row := DesignRow{
			OrderID:       r.OrderID,
			OrderNumber:   r.OrderNumber,
			PartyID:       r.PartyID,
			PartyName:     r.PartyName,
			QualityName:   r.QualityName,
			DesignNumber:  r.DesignNumber,
			TotalSets:     r.TotalSets,
			AllocatedSets: r.AllocatedSets,
			RemainingSets: r.RemainingSets,
			BeamPieces:    []BeamPiece{},
		}
		for _, b := range index[design.Key{OrderID: r.OrderID, DesignNumber: r.DesignNumber}] {
			pieces := r.RemainingSets * b.BeamMultiplier
			row.BeamPieces = append(row.BeamPieces, BeamPiece{
				BeamColorID:    b.BeamColorID,
				BeamColorCode:  b.BeamColorCode,
				BeamColorName:  b.BeamColorName,
				BeamMultiplier: b.BeamMultiplier,
				Pieces:         pieces,
			})
			row.RemainingPieces += pieces
		}
		report.Rows = append(report.Rows, row)
		report.TotalRemainingSets += row.RemainingSets
		report.TotalRemainingPieces += row.RemainingPieces
	}
	report.TotalDesigns = len(report.Rows)
	return report
}

// SummarizeBeams folds design rows by quality name, then beam color code.
func SummarizeBeams(rows []DesignRow) BeamSummary {
	type colorKey struct {
		quality string
		code    string
	}
	totals := make(map[colorKey]*BeamTotal)
	qualities := make(map[string]*QualityBeams)
	for _, row := range rows {
		q, ok := qualities[row.QualityName]
		if !ok {
			q = &QualityBeams{QualityName: row.QualityName}
			qualities[row.QualityName] = q
		}
		for _, bp := range row.BeamPieces {
			k := colorKey{quality: row.QualityName, code: bp.BeamColorCode}
			t, ok := totals[k]
			if !ok {
				t = &BeamTotal{BeamColorID: bp.BeamColorID, BeamColorCode: bp.BeamColorCode, BeamColorName: bp.BeamColorName}
				totals[k] = t
			}
			t.TotalPieces += bp.Pieces
			t.DesignsCount++
			q.TotalPieces += bp.Pieces
		}
	}
	for k, t := range totals {
		qualities[k.quality].Beams = append(qualities[k.quality].Beams, *t)
	}

	out := BeamSummary{Qualities: make([]QualityBeams, 0, len(qualities))}
	for _, q := range qualities {
		sort.Slice(q.Beams, func(i, j int) bool { return q.Beams[i].BeamColorCode < q.Beams[j].BeamColorCode })
		if q.Beams == nil {
			q.Beams = []BeamTotal{}
		}
		out.Qualities = append(out.Qualities, *q)
		out.GrandTotal += q.TotalPieces
	}
	sort.Slice(out.Qualities, func(i, j int) bool { return out.Qualities[i].QualityName < out.Qualities[j].QualityName })
	return out
}

// Summarize computes piece totals at piece granularity from the ledger and
// the beam multipliers of each design.
func Summarize(records []LedgerRecord, beams []design.BeamConfig, lots LotCounts) AllocationSummary {
	perSet := design.PiecesPerSet(beams)
	orders := make(map[int64]struct{})
	out := AllocationSummary{Lots: lots}
	for _, r := range records {
		orders[r.OrderID] = struct{}{}
		n := perSet[design.Key{OrderID: r.OrderID, DesignNumber: r.DesignNumber}]
		out.TotalPieces += r.TotalSets * n
		out.AllocatedPieces += r.AllocatedSets * n
		out.RemainingPieces += r.RemainingSets * n
	}
	out.TotalOrders = len(orders)
	out.AllocationPercentage = Percentage(out.AllocatedPieces, out.TotalPieces)
	return out
}

// Percentage returns part/total×100 rounded to two decimals, or 0 when total is 0.
func Percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(2).InexactFloat64()
}

// CountLots buckets raw status counts.
func CountLots(byStatus map[string]int) LotCounts {
	var out LotCounts
	for status, n := range byStatus {
		out.Total += n
		switch status {
		case "PENDING":
			out.Pending += n
		case "IN_PROGRESS":
			out.InProgress += n
		case "COMPLETED", "DELIVERED":
			out.Completed += n
		}
	}
	return out
}

// BuildPartyWise lists outstanding designs per party with their value at the
// order rate. Fully allocated designs are left out.
func BuildPartyWise(records []LedgerRecord, beams []design.BeamConfig) PartyWise {
	perSet := design.PiecesPerSet(beams)
	parties := make(map[int64]*PartyBalance)
	out := PartyWise{Parties: []PartyBalance{}, TotalValue: decimal.Zero}
	for _, r := range records {
		if r.RemainingSets == 0 {
			continue
		}
		p, ok := parties[r.PartyID]
		if !ok {
			p = &PartyBalance{PartyID: r.PartyID, PartyName: r.PartyName, Value: decimal.Zero}
			parties[r.PartyID] = p
		}
		pieces := r.RemainingSets * perSet[design.Key{OrderID: r.OrderID, DesignNumber: r.DesignNumber}]
		value := r.RatePerPiece.Mul(decimal.NewFromInt(int64(pieces)))
		p.Designs = append(p.Designs, PartyDesign{
			OrderNumber:     r.OrderNumber,
			QualityName:     r.QualityName,
			DesignNumber:    r.DesignNumber,
			RemainingSets:   r.RemainingSets,
			RemainingPieces: pieces,
			RatePerPiece:    r.RatePerPiece,
			Value:           value,
		})
		p.RemainingPieces += pieces
		p.Value = p.Value.Add(value)
		out.TotalPieces += pieces
		out.TotalValue = out.TotalValue.Add(value)
	}
	for _, p := range parties {
		out.Parties = append(out.Parties, *p)
	}
	sort.Slice(out.Parties, func(i, j int) bool {
		if out.Parties[i].PartyName != out.Parties[j].PartyName {
			return out.Parties[i].PartyName < out.Parties[j].PartyName
		}
		return out.Parties[i].PartyID < out.Parties[j].PartyID
	})
	return out
}

// TallyRegister fills per-row pieces (sets × ground colors) and page totals.
func TallyRegister(rows []LotRegisterRow, total int) LotRegister {
	out := LotRegister{Rows: make([]LotRegisterRow, 0, len(rows)), Total: total}
	for _, r := range rows {
		r.TotalPieces = r.AllocatedSets * r.GroundColorsCount
		out.TotalSets += r.AllocatedSets
		out.TotalPieces += r.TotalPieces
		out.Rows = append(out.Rows, r)
	}
	return out
}
