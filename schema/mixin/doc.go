// Package mixin provides a small set of ready-to-use field mixins
// (Time, CreateTime, UpdateTime, SoftDelete, TimeSoftDelete) for the
// timestamp and soft-delete fields most collections declare.
package mixin
