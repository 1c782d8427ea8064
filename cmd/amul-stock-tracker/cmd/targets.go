package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/amul-stock-tracker/internal/store"
	"github.com/donaldgifford/amul-stock-tracker/pkg/picker"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

type targetsOptions struct {
	filter  string
	all     bool
	none    bool
	fresh   bool
	toggles []string
	remote  bool
}

func targetsCmd() *cobra.Command {
	var opts targetsOptions

	c := &cobra.Command{
		Use:   "targets",
		Short: "Build a TARGET_PRODUCTS value from the known products",
		Long: "List every product in the status map and print the comma-separated\n" +
			"selection to paste into TARGET_PRODUCTS. The current targets start\n" +
			"checked unless --fresh is given. --filter narrows the visible items,\n" +
			"and --all or --none apply only to what is visible. Current targets\n" +
			"that no check has seen yet are kept; --toggle drops one.",
		Example: "  amul-stock-tracker targets --filter paneer --all\n" +
			"  amul-stock-tracker targets --toggle lassi-200ml --remote",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, current, err := loadTargetInputs(cmd, opts.remote)
			if err != nil {
				return err
			}
			if opts.fresh {
				current = domain.TargetSet{}
			}

			p, err := pick(statuses, current, opts)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), targetsResult{
					Targets: p.Generate(),
					Items:   p.Visible(),
					Pending: p.Pending(),
				})
			}
			if err := printPickerItems(cmd.ErrOrStderr(), p.Visible()); err != nil {
				return err
			}
			if err := warnPending(cmd.ErrOrStderr(), p); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p.Generate())
			return err
		},
	}

	f := c.Flags()
	f.StringVar(&opts.filter, "filter", "", "only show products whose label contains this text")
	f.BoolVar(&opts.all, "all", false, "select every visible product")
	f.BoolVar(&opts.none, "none", false, "deselect every visible product")
	f.BoolVar(&opts.fresh, "fresh", false, "ignore the currently configured targets")
	f.StringSliceVar(&opts.toggles, "toggle", nil, "flip the selection of these product identifiers")
	f.BoolVar(&opts.remote, "remote", false, "read products from a running server instead of the state backend")
	c.MarkFlagsMutuallyExclusive("all", "none")

	return c
}

type targetsResult struct {
	Targets string        `json:"targets"`
	Items   []picker.Item `json:"items"`
	Pending []string      `json:"pending,omitempty"`
}

// pick applies the filter, bulk selection and toggles in that order.
func pick(statuses domain.StatusMap, current domain.TargetSet, opts targetsOptions) (*picker.Picker, error) {
	p := picker.New(statuses, current)
	p.Filter(opts.filter)

	switch {
	case opts.all:
		p.SelectAllVisible()
	case opts.none:
		p.DeselectAllVisible()
	}

	for _, key := range opts.toggles {
		if !p.Toggle(domain.NormalizeID(key)) {
			return nil, fmt.Errorf("unknown product %q", key)
		}
	}
	return p, nil
}

// warnPending reports configured targets that no check has seen yet. They
// stay in the generated value.
func warnPending(w io.Writer, p *picker.Picker) error {
	pending := p.Pending()
	if len(pending) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w,
		"keeping %d target(s) not in the status map yet: %s\n",
		len(pending), strings.Join(pending, ", "),
	)
	return err
}

func loadTargetInputs(cmd *cobra.Command, remote bool) (domain.StatusMap, domain.TargetSet, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	current := domain.ParseTargets(cfg.Monitor.Targets)

	if remote {
		statuses, err := newClient().StatusMap(cmd.Context())
		return statuses, current, err
	}

	if err := cfg.ValidateState(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	log := newLogger(cfg)
	st, err := store.New(cmd.Context(), &cfg.State, log)
	if err != nil {
		return nil, nil, err
	}
	defer closeStore(st, log)

	statuses, err := st.Load(cmd.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("loading state: %w", err)
	}
	return statuses, current, nil
}
