/* utils.go
 * Utility functions used by the bot's entry point
 */

package main

import (
	"fmt"
	"strings"
)

// convertStrToBool converts a string of true or false into a boolean for comparisons
// Preconditions: Receives string containing either true or false (case insensitive)
// Postconditions: Returns boolean value or an error if the string is not true or false
func convertStrToBool(str string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean string %q", str)
}
