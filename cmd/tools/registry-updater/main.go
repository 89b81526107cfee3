// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"emi-decision-engine/internal/common/validation"
	"emi-decision-engine/pkg/registry"
)

var registryPath string

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.StringVar(&registryPath, "path", "", "Path to registry file (default: embedded registry)")
	taskType := fs.String("taskType", "", "Camunda task type")
	field := fs.String("field", "", "Field to update (status, version, timeout, retries, description)")
	value := fs.String("value", "", "New value for the field")
	input := fs.String("input", "", "Path to a JSON document to check against the input schema")

	switch command {
	case "validate", "list", "show", "update", "check":
		if err := fs.Parse(args); err != nil {
			return err
		}
	case "export":
		if err := fs.Parse(args); err != nil {
			return err
		}
		if registryPath == "" {
			return fmt.Errorf("-path is required for export")
		}
		return saveRegistry(registry.Default(), registryPath)
	default:
		help()
		return nil
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	switch command {
	case "validate":
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Fprintf(out, "Registry validation passed. Found %d activities.\n", len(reg.Activities))

	case "list":
		for _, a := range reg.Activities {
			fmt.Fprintf(out, "%-28s %-28s %-10s %s\n", a.ID, a.TaskType, a.ImplementationStatus, a.Timeout)
		}

	case "show":
		activity, err := find(reg, *taskType)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(activity, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))

	case "update":
		if registryPath == "" {
			return fmt.Errorf("-path is required for update")
		}
		activity, err := find(reg, *taskType)
		if err != nil {
			return err
		}
		if err := updateField(activity, *field, *value); err != nil {
			return err
		}
		reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("update would make registry invalid: %w", err)
		}
		if err := saveRegistry(reg, registryPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated activity %s, field %s to %s\n", activity.ID, *field, *value)

	case "check":
		activity, err := find(reg, *taskType)
		if err != nil {
			return err
		}
		return checkDocument(activity, *input, out)
	}
	return nil
}

func loadRegistry() (*registry.ActivityRegistry, error) {
	if registryPath == "" {
		return registry.Default(), nil
	}
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, nil
}

func find(reg *registry.ActivityRegistry, taskType string) (*registry.Activity, error) {
	if taskType == "" {
		return nil, fmt.Errorf("-taskType is required")
	}
	activity, ok := reg.Find(taskType)
	if !ok {
		return nil, fmt.Errorf("activity with task type %s not found", taskType)
	}
	return activity, nil
}

func updateField(activity *registry.Activity, field, value string) error {
	if value == "" {
		return fmt.Errorf("-value is required")
	}
	switch field {
	case "status":
		activity.ImplementationStatus = value
	case "version":
		activity.Version = value
	case "description":
		activity.Description = value
	case "timeout":
		activity.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return nil
}

func checkDocument(activity *registry.Activity, path string, out io.Writer) error {
	if path == "" {
		return fmt.Errorf("-input is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("input is not valid JSON: %w", err)
	}

	v, err := validation.Compile(activity.InputSchema)
	if err != nil {
		return err
	}
	result, err := v.Validate(doc)
	if err != nil {
		return err
	}
	if !result.Valid {
		for _, msg := range result.GetErrorMessages() {
			fmt.Fprintln(out, "  "+msg)
		}
		return fmt.Errorf("document does not match %s input schema", activity.ID)
	}
	fmt.Fprintf(out, "Document matches %s input schema.\n", activity.ID)
	return nil
}

// saveRegistry handles saving the registry to file
func saveRegistry(reg *registry.ActivityRegistry, path string) error {
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
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  validate  Validate a registry file (or the embedded registry)
  list      List activities
  show      Print one activity
  update    Update an activity field in a registry file
  check     Check a JSON document against an activity's input schema
  export    Write the embedded registry to -path
  help      Show this help message

Examples:
  registry-updater validate -path configs/activity-registry.json
  registry-updater show -taskType evaluate-emi-eligibility
  registry-updater check -taskType evaluate-emi-eligibility -input applicant.json
  registry-updater update -path configs/activity-registry.json -taskType evaluate-emi-eligibility -field timeout -value 45s`)
}
