// Package importer loads rule documents from a directory through the
// normal create path.
//
// Every *.json file holds one wire-format rule document. Importing is safe
// to repeat: a document already stored for its lender is counted as
// present, not as a failure. With Watch the directory is re-imported
// whenever files in it change.
package importer
