package errors

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/viper"
)

// DisplayError formats and displays a SeppoError with enhanced formatting
func DisplayError(err error) {
	// Check if color should be disabled
	noColor := os.Getenv("NO_COLOR") != "" || os.Getenv("SEPPO_NO_COLOR") != ""

	// Also check viper configuration (set by --no-color flag)
	if viperNoColor := getViperBool("output.no_color"); viperNoColor {
		noColor = true
	}

	color.NoColor = noColor

	seppoErr, ok := err.(*SeppoError)
	if !ok {
		// For plain errors, display a simple error message
		color.Red("Error: %v", err)
		return
	}

	// Choose color based on error type
	colorFunc := getErrorStyle(seppoErr.Type)

	// Error header
	fmt.Fprintf(os.Stderr, "\n%s\n", colorFunc(seppoErr.Message))

	// Cause with dimmed style
	if seppoErr.Cause != "" {
		fmt.Fprintf(os.Stderr, "   %s %s\n", color.YellowString("Cause:"), color.HiBlackString(seppoErr.Cause))
	}

	// Environment with dimmed style
	if seppoErr.Environment != "" {
		fmt.Fprintf(os.Stderr, "   %s %s\n", color.CyanString("Environment:"), color.HiBlackString(seppoErr.Environment))
	}

	// Solutions with numbered list
	if len(seppoErr.Solutions) > 0 {
		fmt.Fprintf(os.Stderr, "\n   %s\n", color.GreenString("Solutions:"))
		for i, solution := range seppoErr.Solutions {
			fmt.Fprintf(os.Stderr, "   %s %s\n", color.HiBlackString(fmt.Sprintf("%d.", i+1)), solution)
		}
	}

	// Verification command
	if seppoErr.Verify != "" {
		fmt.Fprintf(os.Stderr, "\n   %s %s\n", color.BlueString("Verify:"), color.HiWhiteString(seppoErr.Verify))
	}

	// Help command
	if seppoErr.Help != "" {
		fmt.Fprintf(os.Stderr, "   %s %s\n", color.MagentaString("Help:"), color.HiWhiteString(seppoErr.Help))
	}

	fmt.Fprintln(os.Stderr) // Final newline
}

// getErrorStyle returns the appropriate color function for an error type
func getErrorStyle(errType ErrorType) func(format string, a ...interface{}) string {
	switch errType {
	case ErrorTypeConfiguration:
		return color.YellowString
	case ErrorTypeAdapter:
		return color.RedString
	case ErrorTypeTimeout:
		return color.MagentaString
	case ErrorTypeSnapshotIntegrity:
		return color.RedString
	case ErrorTypeVerification:
		return color.CyanString
	case ErrorTypeStorage:
		return color.MagentaString
	case ErrorTypeNetwork:
		return color.RedString
	default:
		return color.RedString
	}
}

// FormatErrorWithContext formats an error with additional context for CI/CD environments
func FormatErrorWithContext(err error, context map[string]string) string {
	var sb strings.Builder

	seppoErr, ok := err.(*SeppoError)
	if !ok {
		sb.WriteString(fmt.Sprintf("Error: %v\n", err))
		return sb.String()
	}

	// Main error without color for CI/CD
	sb.WriteString(fmt.Sprintf("Error: %s\n", seppoErr.Message))
	sb.WriteString(fmt.Sprintf("Type: %s/%s\n", seppoErr.Type, seppoErr.Component))

	if seppoErr.Cause != "" {
		sb.WriteString(fmt.Sprintf("Cause: %s\n", seppoErr.Cause))
	}

	// Add context
	if len(context) > 0 {
		sb.WriteString("\nContext:\n")
		for k, v := range context {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, v))
		}
	}

	// Solutions as plain text
	if len(seppoErr.Solutions) > 0 {
		sb.WriteString("\nSolutions:\n")
		for i, solution := range seppoErr.Solutions {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, solution))
		}
	}

	if seppoErr.Verify != "" {
		sb.WriteString(fmt.Sprintf("\nVerify: %s\n", seppoErr.Verify))
	}

	if seppoErr.Help != "" {
		sb.WriteString(fmt.Sprintf("Help: %s\n", seppoErr.Help))
	}

	return sb.String()
}

// DisplayWarning shows a warning message with appropriate formatting
func DisplayWarning(message string) {
	noColor := os.Getenv("NO_COLOR") != "" || os.Getenv("SEPPO_NO_COLOR") != ""
	color.NoColor = noColor

	fmt.Fprintf(os.Stderr, "Warning: %s\n", color.YellowString(message))
}

// DisplaySuccess shows a success message with appropriate formatting
func DisplaySuccess(message string) {
	noColor := os.Getenv("NO_COLOR") != "" || os.Getenv("SEPPO_NO_COLOR") != ""
	color.NoColor = noColor

	fmt.Fprintf(os.Stderr, "Success: %s\n", color.GreenString(message))
}

// DisplayInfo shows an info message with appropriate formatting
func DisplayInfo(message string) {
	noColor := os.Getenv("NO_COLOR") != "" || os.Getenv("SEPPO_NO_COLOR") != ""
	color.NoColor = noColor

	fmt.Fprintf(os.Stderr, "Info: %s\n", color.BlueString(message))
}

// getViperBool safely gets a boolean value from viper
func getViperBool(key string) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	return false
}
