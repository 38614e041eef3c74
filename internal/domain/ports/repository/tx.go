package repository

// Tx is an opaque database transaction handle threaded through repository
// methods. The concrete type is infra-defined (pgx.Tx for Postgres).
// Repositories MUST gracefully accept nil (non-transactional path).
type Tx interface{}

// NoTX is passed where no transaction is wanted.
var NoTX interface{}
