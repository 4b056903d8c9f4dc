package main

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func readCert(t *testing.T, path string) *x509.Certificate {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		t.Fatalf("%s: no PEM block", path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return cert
}

func TestRun_CreatesCAAndServerPair(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	var out bytes.Buffer

	if err := run([]string{"-dir", dir, "-hosts", "localhost, 127.0.0.1,cms.test"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, name := range []string{"ca.crt", "ca.key", "server.crt", "server.key"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	ca := readCert(t, filepath.Join(dir, "ca.crt"))
	server := readCert(t, filepath.Join(dir, "server.crt"))
	if err := server.CheckSignatureFrom(ca); err != nil {
		t.Errorf("server certificate not signed by CA: %v", err)
	}
	if !reflect.DeepEqual(server.DNSNames, []string{"localhost", "cms.test"}) {
		t.Errorf("DNSNames = %v", server.DNSNames)
	}
	if len(server.IPAddresses) != 1 {
		t.Errorf("IPAddresses = %v; want one entry", server.IPAddresses)
	}

	got := out.String()
	if !strings.Contains(got, "Created CA") {
		t.Errorf("output = %q; want CA creation notice", got)
	}
	if !strings.Contains(got, "TLS_CERT_FILE="+filepath.Join(dir, "server.crt")) {
		t.Errorf("output = %q; want TLS_CERT_FILE hint", got)
	}
}

func TestRun_ReusesExistingCA(t *testing.T) {
	dir := t.TempDir()
	if err := run([]string{"-dir", dir}, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, _ := os.ReadFile(filepath.Join(dir, "ca.crt"))

	var out bytes.Buffer
	if err := run([]string{"-dir", dir}, &out); err != nil {
		t.Fatalf("second run: %v", err)
	}
	after, _ := os.ReadFile(filepath.Join(dir, "ca.crt"))

	if !bytes.Equal(before, after) {
		t.Error("CA was regenerated; want it reused")
	}
	if !strings.Contains(out.String(), "Reusing CA") {
		t.Errorf("output = %q; want reuse notice", out.String())
	}
	ca := readCert(t, filepath.Join(dir, "ca.crt"))
	server := readCert(t, filepath.Join(dir, "server.crt"))
	if err := server.CheckSignatureFrom(ca); err != nil {
		t.Errorf("server certificate not signed by reused CA: %v", err)
	}
}

func TestRun_CorruptCA(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ca.crt"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ca.key"), []byte("junk"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := run([]string{"-dir", dir}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for corrupt CA files")
	}
}

func TestSplitHosts(t *testing.T) {
	got := splitHosts(" a ,, b,")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("splitHosts = %v; want [a b]", got)
	}
}
