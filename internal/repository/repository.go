package repository

import "strconv"

// placeholder renders the positional argument marker for the nth bind value.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
