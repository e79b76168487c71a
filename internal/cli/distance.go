package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"uni_directory/internal/geo"
)

var distanceCmd = &cobra.Command{
	Use:   "distance lat1 lon1 lat2 lon2",
	Short: "Great-circle distance between two coordinates",
	Args:  cobra.ExactArgs(4),
	RunE:  runDistance,
}

func init() {
	rootCmd.AddCommand(distanceCmd)
}

func runDistance(cmd *cobra.Command, args []string) error {
	var v [4]float64
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("argument %d (%q) is not a number", i+1, a)
		}
		v[i] = f
	}
	if v[0] < -90 || v[0] > 90 || v[2] < -90 || v[2] > 90 {
		return fmt.Errorf("latitude must be within [-90, 90]")
	}
	if v[1] < -180 || v[1] > 180 || v[3] < -180 || v[3] > 180 {
		return fmt.Errorf("longitude must be within [-180, 180]")
	}
	km := geo.DistanceKm(v[0], v[1], v[2], v[3])
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%.3f km)\n", geo.Format(km), km)
	return nil
}
