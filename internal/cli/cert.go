package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sufield/vaultsession/internal/adapters/secondary/scheduler"
	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/ports"
	"github.com/sufield/vaultsession/internal/core/services"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Inspect managed certificates",
}

var certListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered certificates and their rotation schedule",
	Long:  "Register every certificate named in the config file, obtain them, and print their current status.",
	RunE:  runCertList,
}

func runCertList(cmd *cobra.Command, args []string) error {
	built, err := buildClientFromFile(cmd.Context(), GetConfigPath())
	if err != nil {
		return err
	}
	defer built.client.Close(cmd.Context())

	out := GetOutputWriter()
	if len(built.cfg.Certificates) == 0 {
		fmt.Fprintln(out, "No certificates configured.")
		return nil
	}

	built.client.WithCertificates(built.certificateAuthority(), scheduler.New(), services.CertificateContainerConfig{
		Logger: cliLogger(),
	})
	for _, c := range built.cfg.Certificates {
		req, err := certificateFromConfig(c)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
		built.client.RegisterCertificate(req)
	}
	built.client.StartCertificateRotation()

	for _, st := range built.client.Certificates().List() {
		status := "pending"
		if st.Obtained {
			status = fmt.Sprintf("obtained, expires %s, serial %s", st.Expiry.Format(time.RFC3339), st.Serial)
		}
		fmt.Fprintf(out, "%s (%s): %s\n", st.Name, st.Kind, status)
	}
	return nil
}

// certificateFromConfig translates one ports.CertificateFileConfig entry
// into the domain.RequestedCertificate the certificate container expects.
func certificateFromConfig(c ports.CertificateFileConfig) (domain.RequestedCertificate, error) {
	switch c.Kind {
	case "bundle":
		var ttl time.Duration
		if c.TTL != "" {
			parsed, err := time.ParseDuration(c.TTL)
			if err != nil {
				return domain.RequestedCertificate{}, fmt.Errorf("certificate %q has invalid ttl %q: %w", c.Name, c.TTL, err)
			}
			ttl = parsed
		}
		return domain.NewRequestedBundle(c.Name, c.Role, domain.CertificateRequest{
			CommonName: c.CommonName,
			AltNames:   c.AltNames,
			TTL:        ttl,
		}), nil
	case "trust_anchor":
		return domain.NewRequestedTrustAnchor(c.Name, c.Issuer), nil
	default:
		return domain.RequestedCertificate{}, fmt.Errorf("certificate %q has unknown kind %q", c.Name, c.Kind)
	}
}

func init() {
	certCmd.AddCommand(certListCmd)
	rootCmd.AddCommand(certCmd)
}
