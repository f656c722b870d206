package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"jira-connector/cmd/mockgen/engine"
)

func main() {
	out := flag.String("out", "./.cache/jira.db", "Path of the SQLite database to create")
	projects := flag.String("projects", "WT,OPS,HR", "Comma separated project keys")
	count := flag.Int("count", 200, "Number of issues to generate")
	users := flag.Int("users", 5, "Number of users to generate")
	seed := flag.Int64("seed", 1, "Random seed")
	timezone := flag.String("timezone", "", "Value for the jira.default.timezone property")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Projects: strings.Split(*projects, ","),
		Count:    *count,
		Users:    *users,
		Seed:     *seed,
		Timezone: *timezone,
	}

	fmt.Printf("Generating %d issues across %s with %d users into %s...\n", cfg.Count, *projects, cfg.Users, *out)

	data := engine.Generate(cfg)
	if err := engine.Save(*out, data); err != nil {
		fmt.Printf("Failed to save mock database: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. Use JIRA_DB_DRIVER=sqlite JIRA_DB_DSN=file:%s\n", *out)
}
