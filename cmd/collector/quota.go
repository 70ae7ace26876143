package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// resolveQuota picks the per-bucket quota: the -quota flag, then
// MATCHES_PER_BUCKET, then an interactive prompt.
func resolveQuota(flagValue, envValue int, in io.Reader, out io.Writer) (int, error) {
	if flagValue < 0 {
		return 0, fmt.Errorf("-quota must be positive, got %d", flagValue)
	}
	if flagValue > 0 {
		return flagValue, nil
	}
	if envValue > 0 {
		return envValue, nil
	}
	return promptQuota(in, out)
}

// promptQuota asks until it reads a positive integer. EOF is an error.
func promptQuota(in io.Reader, out io.Writer) (int, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Enter the number of matches to collect per tier/division: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, fmt.Errorf("error reading quota: %w", err)
			}
			return 0, fmt.Errorf("no quota given")
		}

		quota, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || quota <= 0 {
			fmt.Fprintln(out, "Please enter a positive whole number.")
			continue
		}
		return quota, nil
	}
}
