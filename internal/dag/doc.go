// Package dag holds a small dependency graph of string IDs. Program
// loading uses it to order declarations so that every call is traced
// after the values it reads, and to reject circular references before
// anything runs.
package dag
