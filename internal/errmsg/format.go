// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Query operations
	OpQueryRead Op = "read query"
	OpQueryRun  Op = "run query"

	// Collection operations
	OpCollectionOpen Op = "open collection"
	OpTrackAdd       Op = "add track"
	OpSeed           Op = "seed demo library"

	// Mount point operations
	OpMountRegister Op = "register mount point"
	OpMountList     Op = "list mount points"

	// D-Bus operations
	OpBusExport Op = "export collection service"

	// Initialization
	OpConfigLoad Op = "load configuration"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
