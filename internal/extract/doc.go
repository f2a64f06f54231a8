// Package extract turns one intake spreadsheet into its per-file output: the
// pending-shipment orders mapped onto the fixed report schema.
//
// Run reads the workbook, settles the shop identifier (column first, then the
// _SH####_ file name token), leaves a full unfiltered copy in the temp area,
// filters on status, names shops from the directory, maps columns through the
// alias tables, drops repeated order ids and writes the result atomically.
// Any failure leaves no per-file output behind.
package extract
