package app

import "math"

// ProgressPercent оценивает прогресс по числу страниц и найденных контактов (10 на страницу).
func ProgressPercent(pagesProcessed, connectionsFound int, complete bool) int {
	if complete {
		return 100
	}
	expectedPages := math.Max(1, math.Ceil(float64(connectionsFound)/10))
	percent := int(math.Round(float64(pagesProcessed) / expectedPages * 100))
	return min(100, max(5, percent))
}
