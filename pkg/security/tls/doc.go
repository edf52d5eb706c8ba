/*
Package tls serves the API over HTTPS with certificates that can be renewed
without a restart.

A CertificateReloader loads a PEM key pair and polls the files for changes:

	r := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
	if err := r.Start(ctx); err != nil {
		return err
	}
	tlsConfig, err := r.TLSConfig(cfg.MinVersion)

A renewed pair that fails to load or is outside its validity window is
logged and the previous certificate keeps being served.
*/
package tls
