package catalog

// defaultCategories is the stock package selection of the imaging toolkit.
var defaultCategories = []struct {
	name     string
	packages []string
}{
	{"imaging_tools", []string{"ddrescue", "clonezilla", "partclone", "fsarchiver", "testdisk"}},
	{"disk_tools", []string{"util-linux", "gparted", "grub"}},
	{"encryption_tools", []string{"cryptsetup", "gnupg", "openssl"}},
	{"networking_tools", []string{"samba", "cifs-utils", "vsftpd", "nfs-utils", "lighttpd", "konsole"}},
	{"editors_utilities", []string{"neovim", "mc", "fish", "duf", "tree", "tmux", "htop", "glances", "irssi", "screen"}},
	{"development", []string{"pyside6", "jdk-openjdk"}},
	{"gui_kde", []string{
		"plasma-desktop", "plasma-workspace", "plasma-nm", "plasma-pa",
		"sddm", "dolphin", "kate", "ark", "spectacle", "kwrite",
		"xorg-server", "xorg-xinit", "xterm", "firefox",
		"kde-applications-meta", "plasma-meta",
	}},
	{"filesystems", []string{"btrfs-progs", "xfsprogs", "f2fs-tools", "nilfs-utils"}},
	{"diagnostic_tools", []string{"smartmontools", "hdparm", "lshw"}},
}

// Default returns a fresh copy of the stock catalog.
func Default() *Catalog {
	c := New()
	for _, d := range defaultCategories {
		cat := &category{name: d.name, packages: append([]string(nil), d.packages...)}
		c.categories = append(c.categories, cat)
	}
	return c
}
