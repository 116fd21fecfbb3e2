package optimizer

// WasteBoardFeet converts the waste of every board group in result into
// board feet.
func WasteBoardFeet(result Result) float64 {
	var total float64
	for _, usage := range result.BoardUsage {
		d := usage.Product.Dimensions
		wasteArea := d.Length * d.Width * float64(usage.BoardsNeeded) * (usage.WastePercentage / 100)
		total += wasteArea * d.Thickness / 144
	}
	return total
}
