// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"loan-portal/pkg/registry"
)

// knownTaskTypes are the job types the portal manager registers workers for.
var knownTaskTypes = map[string]bool{
	"user-signup":        true,
	"user-login":         true,
	"user-logout":        true,
	"submit-application": true,
	"bank-details":       true,
	"select-offer":       true,
	"external-action":    true,
	"track-disbursal":    true,
	"loan-dashboard":     true,
	"payment-initiation": true,
	"grievance-ticket":   true,
	"send-notification":  true,
}

var registryPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd, listCmd} {
		fs.StringVar(&registryPath, "path", "configs/flow-registry.json", "Path to registry file")
	}

	// Add command flags
	idAdd := addCmd.String("id", "", "Step ID (e.g., video-kyc)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Video KYC)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "", "Category (e.g., verification)")
	taskType := addCmd.String("taskType", "", "Worker task type (e.g., external-action)")
	after := addCmd.String("after", "", "Insert after this step; appends when empty")
	requires := addCmd.String("requires", "transactionId", "Comma separated session fields the step needs")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Step ID to update")
	field := updateCmd.String("field", "", "Field to update (displayName, timeout, retries, etc.)")
	value := updateCmd.String("value", "", "New value for the field")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *category == "" || *taskType == "" {
			fmt.Println("Error: id, displayName, category, and taskType are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		step := registry.Step{
			ID:          *idAdd,
			DisplayName: *displayName,
			Description: *description,
			Category:    *category,
			TaskType:    *taskType,
			Requires:    splitList(*requires),
			Timeout:     "30s",
		}
		if err := addStep(step, *after); err != nil {
			fmt.Printf("Error adding step: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added step: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" {
			fmt.Println("Error: id and field are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateStep(*idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating step: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated step %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listSteps(); err != nil {
			fmt.Printf("Error listing steps: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func addStep(step registry.Step, after string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.FlowRegistry{Version: "1"}
	}

	if _, err := reg.Step(step.ID); err == nil {
		return fmt.Errorf("step with ID %s already exists", step.ID)
	}

	pos := len(reg.Steps)
	if after != "" {
		prev := -1
		for i, s := range reg.Steps {
			if s.ID == after {
				prev = i
				break
			}
		}
		if prev < 0 {
			return fmt.Errorf("step %s not found", after)
		}
		pos = prev + 1
	}

	steps := make([]registry.Step, 0, len(reg.Steps)+1)
	steps = append(steps, reg.Steps[:pos]...)
	steps = append(steps, step)
	reg.Steps = append(steps, reg.Steps[pos:]...)

	return saveRegistry(reg, registryPath)
}

func updateStep(id, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	step, err := reg.Step(id)
	if err != nil {
		return err
	}

	switch field {
	case "displayName":
		step.DisplayName = value
	case "description":
		step.Description = value
	case "category":
		step.Category = value
	case "taskType":
		step.TaskType = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		step.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		step.Retries = retries
	case "requires":
		step.Requires = splitList(value)
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	return saveRegistry(reg, registryPath)
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	for _, step := range reg.Steps {
		if step.DisplayName == "" {
			return fmt.Errorf("step %s missing required field: DisplayName", step.ID)
		}
		if !knownTaskTypes[step.TaskType] {
			return fmt.Errorf("step %s has no worker for task type %q", step.ID, step.TaskType)
		}
		if step.Timeout != "" {
			if _, err := time.ParseDuration(step.Timeout); err != nil {
				return fmt.Errorf("step %s has invalid timeout %q", step.ID, step.Timeout)
			}
		}
	}

	fmt.Printf("Registry validation passed. Found %d steps.\n", len(reg.Steps))
	return nil
}

func listSteps() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	for i, step := range reg.Steps {
		next := reg.MustNext(step.ID)
		if next == "" {
			next = "-"
		}
		fmt.Printf("%d. %-14s %-20s next=%s\n", i+1, step.ID, step.TaskType, next)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// saveRegistry handles saving the registry to file
func saveRegistry(reg *registry.FlowRegistry, path string) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	reg.LastUpdated = time.Now().Format(time.RFC3339)

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a step to the flow registry
  update   Update an existing step's field
  validate Validate the registry file
  list     Print the steps in flow order
  help     Show this help message

Examples:
  registry-updater add -id video-kyc -displayName "Video KYC" -category verification -taskType external-action -after kyc
  registry-updater update -id disbursement -field timeout -value 45m
  registry-updater validate -path configs/flow-registry.json

Use 'registry-updater <command> -h' for more information about a command.
` + "\n")
}
