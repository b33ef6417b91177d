// Package channel normalizes the identifiers codes and links are delivered
// to. Email addresses are lowercased and format-checked; mobile numbers are
// converted to E.164 so "08123456789", "+91 81234 56789" and "8123456789"
// address the same challenge.
package channel
