// engine is the command-line entry point: it loads a serialized plan,
// executes it over its declared sources, and prints the resulting
// partitions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"

	"dataframe-engine/internal/config"
	"dataframe-engine/internal/logging"
	"dataframe-engine/internal/partition"
	"dataframe-engine/internal/plan"
	"dataframe-engine/internal/runner"
)

func main() {
	var (
		planPath = flag.String("plan", "", "Path to a serialized plan document")
		describe = flag.Bool("describe", false, "Print the execution plan instead of running it")
		maxRows  = flag.Int("max-rows", 20, "Maximum rows to print per partition")
	)
	flag.Parse()

	if *planPath == "" {
		log.Fatal("missing required flag: -plan")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	data, err := os.ReadFile(*planPath)
	if err != nil {
		log.Fatalf("Failed to read plan: %v", err)
	}
	p, err := plan.Unmarshal(data)
	if err != nil {
		log.Fatalf("Failed to decode plan: %v", err)
	}

	if *describe {
		text, err := p.Describe()
		if err != nil {
			log.Fatalf("Failed to describe plan: %v", err)
		}
		fmt.Print(text)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewLogger(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	result, err := runner.NewPlanRunner(cfg, logger).Run(ctx, p)
	if err != nil {
		log.Fatalf("Plan execution failed: %v", err)
	}

	printResult(result, *maxRows)
}

func printResult(result *partition.Set, maxRows int) {
	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	for _, part := range result.Partitions() {
		_, _ = header.Printf("partition %d (%d rows)\n", part.ID(), part.Len())
		tw := tabwriter.NewWriter(os.Stdout, 4, 4, 2, ' ', 0)
		for _, name := range part.Schema().Names() {
			fmt.Fprintf(tw, "%s\t", name)
		}
		fmt.Fprintln(tw)
		rows := part.Len()
		if rows > maxRows {
			rows = maxRows
		}
		for i := 0; i < rows; i++ {
			for _, v := range part.Row(i) {
				if v == nil {
					fmt.Fprint(tw, "null\t")
					continue
				}
				fmt.Fprintf(tw, "%v\t", v)
			}
			fmt.Fprintln(tw)
		}
		_ = tw.Flush()
		if part.Len() > maxRows {
			_, _ = dim.Printf("... %d more rows\n", part.Len()-maxRows)
		}
	}
}
