// Package backend holds the code generation directives of the GraphQL API.
package backend

//go:generate go run -mod=mod ./ent/entc.go
//go:generate go tool gqlgen generate
