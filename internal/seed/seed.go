// Package seed carries the embedded first-run data: a small product
// catalog, an empty sale ledger, and a default user table. The stores fall
// back to these bytes when their data files do not exist yet.
package seed

import _ "embed"

// Products contains the default product catalog JSON.
//
//go:embed data/products.json
var Products []byte

// Sales contains the default (empty) sale ledger JSON.
//
//go:embed data/sales.json
var Sales []byte

// Users contains the default credential table CSV. The passwords are
// "admin123" and "user123"; replace the file in any real deployment.
//
//go:embed data/users.csv
var Users []byte
