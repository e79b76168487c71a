package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"uni_directory/internal/compare"
	"uni_directory/internal/domain"
	"uni_directory/internal/geo"
	"uni_directory/internal/listing"
)

type listFlags struct {
	query      string
	location   string
	minRating  string
	maxFees    string
	minGrade   string
	maxGrade   string
	postgrad   bool
	accredited bool
	verified   bool
	sortBy     string
	near       []float64
	json       bool
}

var (
	universityFlags listFlags
	facultyFlags    listFlags
)

var universitiesCmd = &cobra.Command{
	Use:     "universities",
	Aliases: []string{"unis"},
	Short:   "List universities",
	Args:    cobra.NoArgs,
	RunE:    runUniversities,
}

var facultiesCmd = &cobra.Command{
	Use:   "faculties",
	Short: "List faculties with their university",
	Args:  cobra.NoArgs,
	RunE:  runFaculties,
}

func init() {
	bindListFlags(universitiesCmd, &universityFlags)
	bindListFlags(facultiesCmd, &facultyFlags)
	rootCmd.AddCommand(universitiesCmd, facultiesCmd)
}

func bindListFlags(cmd *cobra.Command, f *listFlags) {
	fs := cmd.Flags()
	fs.StringVarP(&f.query, "query", "q", "", "free-text search on name and description")
	fs.StringVar(&f.location, "location", "", "address substring")
	fs.StringVar(&f.minRating, "min-rating", "", "minimum overall rating (0-10)")
	fs.StringVar(&f.maxFees, "max-fees", "", "maximum annual fees in EGP")
	fs.StringVar(&f.minGrade, "min-grade", "", "minimum Thanaweya acceptance grade")
	fs.StringVar(&f.maxGrade, "max-grade", "", "maximum Thanaweya acceptance grade")
	fs.BoolVar(&f.postgrad, "postgrad", false, "only faculties with postgraduate programs")
	fs.BoolVar(&f.accredited, "accredited", false, "only accredited entries")
	fs.BoolVar(&f.verified, "verified", false, "only verified universities")
	fs.StringVar(&f.sortBy, "sort", "", "rating|fees|grades|name|distance|year")
	fs.Float64SliceVar(&f.near, "near", nil, "lat,lng used by --sort distance")
	fs.BoolVar(&f.json, "json", false, "output as JSON")
}

func (f listFlags) filters() (listing.Filters, error) {
	out := listing.Filters{
		MinRating:       f.minRating,
		MaxFees:         f.maxFees,
		MinGrade:        f.minGrade,
		MaxGrade:        f.maxGrade,
		HasPostgraduate: f.postgrad,
		Accredited:      f.accredited,
		Verified:        f.verified,
		Location:        f.location,
		SortBy:          f.sortBy,
	}
	switch len(f.near) {
	case 0:
	case 2:
		out.Near = &geo.Point{Lat: f.near[0], Lng: f.near[1]}
	default:
		return out, fmt.Errorf("--near wants lat,lng, got %d values", len(f.near))
	}
	return out, nil
}

func runUniversities(cmd *cobra.Command, _ []string) error {
	q, err := ensureQueries(cmd.Context())
	if err != nil {
		return err
	}
	f, err := universityFlags.filters()
	if err != nil {
		return err
	}
	us, err := q.ListUniversities(cmd.Context(), universityFlags.query, f)
	if err != nil {
		return fmt.Errorf("list universities: %w", err)
	}
	if universityFlags.json {
		return outputJSON(cmd, us)
	}
	if len(us) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No universities match.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRATING\tREVIEWS\tADDRESS")
	for _, u := range us {
		addr := compare.NA
		if u.Location != nil && u.Location.Address != "" {
			addr = u.Location.Address
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			u.ID, u.Name, compare.FormatValue(deref(u.OverallRating), compare.Rating), u.TotalReviews, addr)
	}
	return tw.Flush()
}

func runFaculties(cmd *cobra.Command, _ []string) error {
	q, err := ensureQueries(cmd.Context())
	if err != nil {
		return err
	}
	f, err := facultyFlags.filters()
	if err != nil {
		return err
	}
	fs, err := q.ListFaculties(cmd.Context(), facultyFlags.query, f)
	if err != nil {
		return fmt.Errorf("list faculties: %w", err)
	}
	if facultyFlags.json {
		return outputJSON(cmd, fs)
	}
	if len(fs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No faculties match.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUNIVERSITY\tFEES\tMIN GRADE\tRATING")
	for _, v := range fs {
		uni := compare.NA
		if v.UniversityName != nil {
			uni = *v.UniversityName
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Name, uni,
			compare.FormatValue(deref(v.AnnualFeesEGP), compare.Currency),
			compare.FormatValue(grade(v.Faculty), compare.Percentage),
			compare.FormatValue(deref(v.OverallRating), compare.Rating))
	}
	return tw.Flush()
}

func grade(f domain.Faculty) any {
	if f.AcceptanceGrades == nil {
		return nil
	}
	return deref(f.AcceptanceGrades.Thanaweya)
}

// deref turns a nil pointer into an untyped nil so it formats as N/A.
func deref(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
