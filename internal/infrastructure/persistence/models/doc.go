// Package models holds the GORM row types behind the repositories. Domain
// types stay free of tags; each model has a FromDomain constructor and a
// ToDomain method.
//
// Every table has a tenant_id column, child tables too, so the tenant
// callbacks can scope preloads and bulk deletes the same way they scope
// plain queries.
package models
