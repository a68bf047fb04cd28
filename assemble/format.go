package assemble

import "fmt"

var sizeUnits = []string{"KB", "MB", "GB"}

// FormatSize renders a byte count as "512 B", "1.5 KB", "2.0 MB" and so on, up to GB.
func FormatSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size) / 1024
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", value, sizeUnits[unit])
}
