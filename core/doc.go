// Package core contains the bank-account linking contracts, entities and the
// pipeline that drives them. Aggregator, payment-rail and storage adapters
// depend on this package; core must not depend on any of them.
package core
