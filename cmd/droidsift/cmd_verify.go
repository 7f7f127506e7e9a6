package main

// ---------------------------------------------------------------------------
// cmd_verify.go — check evidence CSVs against their hash manifests
// ---------------------------------------------------------------------------

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/droidsift-project/droidsift/internal/core"
)

func cmdVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	all := fs.Bool("all", false, "Verify every manifest under the reports directory")
	fs.Parse(args)

	manifests := fs.Args()
	if *all {
		cfg := loadConfigOrDie(*configPath)
		found, err := filepath.Glob(filepath.Join(cfg.Reports.Dir, "*", "hash_*.txt"))
		if err != nil || len(found) == 0 {
			errorf("no manifests found under %s", cfg.Reports.Dir)
		}
		sort.Strings(found)
		manifests = found
	}
	if len(manifests) == 0 {
		errorf("usage: droidsift verify <manifest>... or droidsift verify --all")
	}

	failed := 0
	for _, m := range manifests {
		if err := core.VerifyManifest(m); err != nil {
			failed++
			var iErr *core.IntegrityError
			if errors.As(err, &iErr) {
				fmt.Fprintf(os.Stdout, "%s %s\n    %s %s\n    %s %s\n",
					red("✗"), m, dim("expected"), iErr.Want, dim("actual"), iErr.Got)
			} else {
				fmt.Fprintf(os.Stdout, "%s %s — %v\n", red("✗"), m, err)
			}
			continue
		}
		fmt.Fprintf(os.Stdout, "%s %s\n", green("✓"), m)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%s %d of %d manifest(s) failed verification.\n", red("✗"), failed, len(manifests))
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "\n%s All %d manifest(s) verified.\n", green("✓"), len(manifests))
}
