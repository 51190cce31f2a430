package request

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SubjectIdentity holds the distinguished name fields collected from the
// operator. Empty fields are passed through as-is; whether a field is
// required is the collector's concern.
type SubjectIdentity struct {
	CommonName         string
	Organization       string
	OrganizationalUnit string
	Locality           string
	State              string
	Country            string
}

// DN renders the subject in the order the request tool expects.
func (s SubjectIdentity) DN() string {
	return fmt.Sprintf("CN=%s,OU=%s,O=%s,L=%s,S=%s,C=%s",
		s.CommonName, s.OrganizationalUnit, s.Organization, s.Locality, s.State, s.Country)
}

type KeyPolicy struct {
	Algorithm  string
	Bits       int
	Hash       string
	Exportable bool
}

func DefaultKeyPolicy() KeyPolicy {
	return KeyPolicy{
		Algorithm:  "RSA",
		Bits:       2048,
		Hash:       "SHA-256",
		Exportable: true,
	}
}

// Descriptor is the declarative input handed to the request tool. One
// descriptor per run; it is not mutated after the request is generated.
type Descriptor struct {
	Identity SubjectIdentity
	SANs     []string
	Policy   KeyPolicy
}

func Build(identity SubjectIdentity, sans []string, policy KeyPolicy) *Descriptor {
	return &Descriptor{Identity: identity, SANs: sans, Policy: policy}
}

// Render produces the INF text consumed by certreq. The SAN extension uses
// one continuation line per name; with no SANs the [Extensions] section is
// omitted entirely.
func (d *Descriptor) Render() string {
	var b strings.Builder

	b.WriteString("[Version]\r\n")
	b.WriteString("Signature = \"$Windows NT$\"\r\n")
	b.WriteString("\r\n")
	b.WriteString("[NewRequest]\r\n")
	fmt.Fprintf(&b, "Subject = %q\r\n", d.Identity.DN())
	b.WriteString("KeySpec = 1\r\n")
	fmt.Fprintf(&b, "KeyLength = %d\r\n", d.Policy.Bits)
	fmt.Fprintf(&b, "Exportable = %s\r\n", infBool(d.Policy.Exportable))
	b.WriteString("MachineKeySet = TRUE\r\n")
	b.WriteString("ProviderName = \"Microsoft RSA SChannel Cryptographic Provider\"\r\n")
	b.WriteString("ProviderType = 12\r\n")
	b.WriteString("RequestType = PKCS10\r\n")
	b.WriteString("KeyUsage = 0xa0\r\n")
	fmt.Fprintf(&b, "HashAlgorithm = %s\r\n", infHash(d.Policy.Hash))

	if len(d.SANs) > 0 {
		b.WriteString("\r\n")
		b.WriteString("[Extensions]\r\n")
		// 2.5.29.17 = subjectAltName
		b.WriteString("2.5.29.17 = \"{text}\"\r\n")
		for _, san := range d.SANs {
			fmt.Fprintf(&b, "_continue_ = \"dns=%s&\"\r\n", san)
		}
	}

	return b.String()
}

// WriteTemp writes the descriptor to a uniquely named file in the system
// temp directory so concurrent operator sessions can't clobber each other.
// The caller is responsible for removing it.
func (d *Descriptor) WriteTemp() (string, error) {
	path := filepath.Join(os.TempDir(), "certreq-"+uuid.NewString()+".inf")
	if err := os.WriteFile(path, []byte(d.Render()), 0o600); err != nil {
		return "", fmt.Errorf("error writing request descriptor: %w", err)
	}
	return path, nil
}

func infBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// infHash maps "SHA-256" style names to the bare form the INF grammar wants.
func infHash(h string) string {
	return strings.ReplaceAll(strings.ToUpper(h), "-", "")
}
