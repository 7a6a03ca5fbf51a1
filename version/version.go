package version

const (
	// FCSemVer is used as the fallback version of flowctl
	// when not using git describe. It uses semantic versioning format.
	FCSemVer = "0.1.0-dev"

	// LESProtocol is the light client protocol version whose buffer value
	// accounting this module implements.
	LESProtocol uint64 = 2
)

// FCGitCommitHash uses git rev-parse HEAD to find commit hash which is helpful
// for the engineering team when working with the flowctl binary.
var FCGitCommitHash = ""
