// Package main writes a development CA and a server certificate so the API
// can be served over HTTPS locally with Secure session cookies.
package main

import (
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/ukarch-cms/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
}

// run reuses an existing ca.crt/ca.key in dir so browsers that already trust
// it keep working, and always issues a fresh server pair.
func run(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := flags.String("dir", "certs", "output directory")
	hosts := flags.String("hosts", "localhost,127.0.0.1", "comma-separated server hostnames and IPs")
	if err := flags.Parse(args); err != nil {
		return err
	}

	caCert, caKey, reused, err := loadOrCreateCA(*dir)
	if err != nil {
		return err
	}

	certPEM, keyPEM, err := certgen.GenerateServerCertificate(splitHosts(*hosts), caCert, caKey)
	if err != nil {
		return err
	}
	certPath, keyPath, err := certgen.WritePair(*dir, "server", certPEM, keyPEM)
	if err != nil {
		return err
	}

	if reused {
		fmt.Fprintf(out, "Reusing CA in %s\n", *dir)
	} else {
		fmt.Fprintf(out, "Created CA in %s; add ca.crt to your trust store\n", *dir)
	}
	fmt.Fprintf(out, "TLS_CERT_FILE=%s\nTLS_KEY_FILE=%s\n", certPath, keyPath)
	return nil
}

func loadOrCreateCA(dir string) (*x509.Certificate, any, bool, error) {
	certPath := filepath.Join(dir, "ca.crt")
	keyPath := filepath.Join(dir, "ca.key")

	cert, key, err := certgen.LoadCACredentials(certPath, keyPath)
	if err == nil {
		return cert, key, true, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, false, err
	}

	certPEM, keyPEM, err := certgen.GenerateCA("ukarch development CA")
	if err != nil {
		return nil, nil, false, err
	}
	if _, _, err := certgen.WritePair(dir, "ca", certPEM, keyPEM); err != nil {
		return nil, nil, false, err
	}
	cert, key, err = certgen.ParseCA(certPEM, keyPEM)
	if err != nil {
		return nil, nil, false, err
	}
	return cert, key, false, nil
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
