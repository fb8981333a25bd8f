package artifact

// Paths inside the build container and inside the profile.
const (
	// ProfileDir is where the build image keeps its copy of the releng profile.
	ProfileDir = "/build/my-imaging-distro"
	// PackageCacheDir is the pacman package cache.
	PackageCacheDir = "/var/cache/pacman/pkg"
	// WorkDir holds the intermediate state of mkarchiso.
	WorkDir = "/work"
	// OutputDir receives the finished image.
	OutputDir = "/output"

	// RootFS is the overlay that becomes the root of the image, relative to the profile.
	RootFS = "airootfs"
	// UnitDir is the systemd unit directory relative to the root of the image.
	UnitDir = "etc/systemd/system"
	// PackageManifest lists the packages installed into the image.
	PackageManifest = "packages.x86_64"
	// ProfileDefinition is the profile's own settings script.
	ProfileDefinition = "profiledef.sh"
)
