// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tls provisions the self-signed key pair used by the https admin
// endpoint when no certificate has been deployed.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// DefaultValidity is the lifetime of generated certificates.
const DefaultValidity = 5 * 365 * 24 * time.Hour

// Config holds configuration for certificate provisioning.
type Config struct {
	CertPath string
	KeyPath  string
	// Hosts are extra DNS names or IPs for the certificate SANs
	Hosts    []string
	Validity time.Duration
	Logger   zerolog.Logger
}

// EnsureCertificates keeps an existing pair and generates a self-signed one
// when either file is missing.
func EnsureCertificates(cfg Config) error {
	if cfg.CertPath == "" || cfg.KeyPath == "" {
		return errors.New("tls: cert and key paths are required")
	}
	certExists := fileExists(cfg.CertPath)
	keyExists := fileExists(cfg.KeyPath)
	if certExists && keyExists {
		return nil
	}
	if certExists || keyExists {
		cfg.Logger.Warn().
			Str("event", "tls.incomplete_pair").
			Bool("cert_exists", certExists).
			Bool("key_exists", keyExists).
			Msg("incomplete TLS key pair, regenerating both")
	}

	validity := cfg.Validity
	if validity <= 0 {
		validity = DefaultValidity
	}
	if err := GenerateSelfSigned(cfg.CertPath, cfg.KeyPath, cfg.Hosts, validity); err != nil {
		return err
	}
	cfg.Logger.Info().
		Str("event", "tls.generated").
		Str("cert", cfg.CertPath).
		Str("key", cfg.KeyPath).
		Strs("hosts", cfg.Hosts).
		Msg("generated self-signed admin certificate")
	return nil
}

// GenerateSelfSigned writes a fresh ECDSA P-256 pair. The SANs always cover
// localhost and the loopback addresses.
func GenerateSelfSigned(certPath, keyPath string, hosts []string, validity time.Duration) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate private key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial number: %w", err)
	}

	ips, names := splitHosts(append([]string{"localhost", "127.0.0.1", "::1"}, hosts...))
	now := time.Now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"vwworker self-signed"}, CommonName: "vwworker-admin"},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           ips,
		DNSNames:              names,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}

	if err := writePEM(certPath, "CERTIFICATE", der, 0o644); err != nil {
		return err
	}
	return writePEM(keyPath, "EC PRIVATE KEY", keyDER, 0o600)
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create %s directory: %w", blockType, err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := renameio.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// HostsFor returns the SAN candidates of a listen address. Wildcard hosts
// expand to nothing; the loopback defaults cover local clients.
func HostsFor(addr string) []string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		return nil
	}
	return []string{host}
}

func splitHosts(hosts []string) ([]net.IP, []string) {
	seenIP := make(map[string]net.IP)
	seenName := make(map[string]struct{})
	for _, h := range hosts {
		if h == "" {
			continue
		}
		if ip := net.ParseIP(h); ip != nil {
			seenIP[ip.String()] = ip
			continue
		}
		seenName[h] = struct{}{}
	}

	ips := make([]net.IP, 0, len(seenIP))
	ipKeys := make([]string, 0, len(seenIP))
	for k := range seenIP {
		ipKeys = append(ipKeys, k)
	}
	sort.Strings(ipKeys)
	for _, k := range ipKeys {
		ips = append(ips, seenIP[k])
	}

	names := make([]string, 0, len(seenName))
	for n := range seenName {
		names = append(names, n)
	}
	sort.Strings(names)
	return ips, names
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
