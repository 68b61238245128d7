// Package admin implements the operator commands of cmd/admin. Input is
// read line by line from the terminal; passwords are read without echo.
package admin
