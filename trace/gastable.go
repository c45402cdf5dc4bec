package trace

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// GasStats summarizes the gas costs recorded for one method.
type GasStats struct {
	Count  int
	Min    uint64
	Max    uint64
	Mean   uint64
	Median uint64
}

// Stats computes summary statistics over a recorded gas sequence, treated
// as a multiset. Returns false when no calls were recorded.
func Stats(gases []uint64) (GasStats, bool) {
	if len(gases) == 0 {
		return GasStats{}, false
	}
	sorted := make([]uint64, len(gases))
	copy(sorted, gases)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum uint64
	for _, g := range sorted {
		sum += g
	}
	mean := uint64(math.Round(float64(sum) / float64(len(sorted))))

	var median uint64
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		median = sorted[mid]
	} else {
		median = uint64(math.Round(float64(sorted[mid-1]+sorted[mid]) / 2))
	}

	return GasStats{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		Median: median,
	}, true
}

// RenderGasReport writes one table per contract with per-method call
// counts and gas statistics. Methods with zero recorded calls are omitted;
// contracts whose every method has zero calls produce no table at all.
// Contracts and methods print in sorted order for stable output.
func RenderGasReport(w io.Writer, report GasReport) {
	contracts := make([]string, 0, len(report))
	for contractID := range report {
		contracts = append(contracts, contractID)
	}
	sort.Strings(contracts)

	for _, contractID := range contracts {
		methods := report[contractID]
		methodIDs := make([]string, 0, len(methods))
		for methodID := range methods {
			methodIDs = append(methodIDs, methodID)
		}
		sort.Strings(methodIDs)

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Method", "Times called", "Min.", "Max.", "Mean", "Median"})
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		table.SetBorder(false)

		rows := 0
		for _, methodID := range methodIDs {
			stats, ok := Stats(methods[methodID])
			if !ok {
				continue
			}
			table.Append([]string{
				methodID,
				strconv.Itoa(stats.Count),
				strconv.FormatUint(stats.Min, 10),
				strconv.FormatUint(stats.Max, 10),
				strconv.FormatUint(stats.Mean, 10),
				strconv.FormatUint(stats.Median, 10),
			})
			rows++
		}
		if rows == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s Gas\n\n", contractID)
		table.Render()
	}
}
