// Package intake lists new spreadsheets in the intake directory and screens
// out content that has already been archived.
package intake
