// Package models contains the GORM persistence models and their conversions
// to and from domain entities. Models carry the storage concerns (column
// types, indexes, optimistic-lock version) so the domain stays persistence
// free.
package models
