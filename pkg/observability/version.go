package observability

// Version is the build version reported by health checks. Release builds
// stamp it with:
//
//	go build -ldflags "-X github.com/easternmills/millops/pkg/observability.Version=$(git describe --tags)"
var Version = "dev"
