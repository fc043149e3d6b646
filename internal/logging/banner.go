package logging

import "github.com/ternarybob/banner"

// PrintBanner shows the startup banner, matching the teacher's
// internal/common.PrintBanner.
func PrintBanner(version string) {
	banner.PrintSimple("dz-wrokshop", version)
}
