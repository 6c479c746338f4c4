package utils

// ContextKey is the type for request-scoped values set by the middlewares.
type ContextKey string
