package canary

import "github.com/sirupsen/logrus"

// pkgLogger is the tracing-layer logger used to report handler/dispatch
// errors that cannot propagate back through the acceptor, per spec.md
// §7 ("Handler dispatch errors are logged at the tracing layer but do
// not propagate back through the acceptor"). It defaults to logrus's
// standard logger and can be overridden with SetLogger, e.g. to attach
// fields identifying the running service.
var pkgLogger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the package-wide tracing-layer logger.
func SetLogger(l logrus.FieldLogger) {
	if l != nil {
		pkgLogger = l
	}
}

func logger() logrus.FieldLogger { return pkgLogger }
