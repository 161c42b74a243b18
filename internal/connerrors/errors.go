// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package connerrors turns database connection failures into user-friendly messages.
package connerrors

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pterm/pterm"
)

// Category is the broad cause of a connection failure.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryTimeout
	CategoryDNS
	CategoryRefused
	CategoryTLS
	CategoryAuth
	CategoryDatabase
)

// Classify inspects err and returns its most likely cause.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryUnknown
	case isAuthError(err):
		return CategoryAuth
	case isMissingDatabase(err):
		return CategoryDatabase
	case isTimeoutError(err):
		return CategoryTimeout
	case isDNSError(err):
		return CategoryDNS
	case isConnectionRefusedError(err):
		return CategoryRefused
	case isTLSError(err):
		return CategoryTLS
	default:
		return CategoryUnknown
	}
}

// isAuthError checks for rejected credentials (SQLSTATE class 28).
func isAuthError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "28")
	}
	return strings.Contains(strings.ToLower(err.Error()), "password authentication failed")
}

// isMissingDatabase checks for an unknown database name (SQLSTATE 3D000).
func isMissingDatabase(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "3D000"
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such host")
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isTLSError checks if the error is an SSL/TLS error.
func isTLSError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "ssl") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

// Format renders a connection failure to host. detail is the already masked error text.
func Format(err error, host, detail string) string {
	if host == "" {
		host = "the database"
	}
	var b strings.Builder
	line := func(s string) { b.WriteString(s + "\n") }

	switch Classify(err) {
	case CategoryTimeout:
		line("⏱️  Connection to " + host + " timed out")
		line("")
		line("The server took too long to respond. This could mean:")
		line("  • Slow or unstable network connection")
		line("  • The warehouse is suspended or resuming")
		line("  • A firewall is silently dropping the connection")
	case CategoryDNS:
		line("🌐 Cannot resolve " + host)
		line("")
		line("Please check the host name in your DSN and your DNS settings.")
	case CategoryRefused:
		line("🚫 Connection refused by " + host)
		line("")
		line("The server is not accepting connections. This could mean:")
		line("  • The service is down")
		line("  • Wrong host or port in the DSN")
		line("  • A firewall is blocking the port")
	case CategoryTLS:
		line("🔒 Secure connection to " + host + " failed")
		line("")
		line("Try adjusting sslmode in the DSN or check the server certificate and your system clock.")
	case CategoryAuth:
		line("🔑 Authentication failed for " + host)
		line("")
		line("The user name or password was rejected. Run 'cortexq connect' to update the DSN.")
	case CategoryDatabase:
		line("📂 Database not found on " + host)
		line("")
		line("Check the database name in your DSN.")
	default:
		line("❌ Cannot connect to " + host)
		line("")
		line("Please check your DSN, network connection, and firewall settings.")
	}

	if detail != "" {
		b.WriteString("\n")
		b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + detail))
		b.WriteString("\n")
	}
	return b.String()
}
