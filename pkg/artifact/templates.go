package artifact

const sshSetupScript = `#!/bin/bash
if [ ! -f /etc/ssh/ssh_host_rsa_key ]; then
    ssh-keygen -A
fi
if [ ! -f /etc/ssh/.root_password_set ]; then
    echo "root:hardclone" | chpasswd
    touch /etc/ssh/.root_password_set
fi
mkdir -p /root/.ssh
chmod 700 /root/.ssh
systemctl enable sshd
systemctl start sshd
echo "=== SSH Server Started ==="
echo "SSH Server: ACTIVE"
echo "Port: 22"
echo "Root login: YES"
echo "Password: hardclone"
echo "IP Address: $(hostname -I | awk '{print $1}')"
echo "Connect: ssh root@$(hostname -I | awk '{print $1}')"
`

const imagingToolsScript = `#!/bin/bash
echo "=== Imaging Tools ==="
echo "1. Show disks"
echo "2. Create disk image (dd)"
echo "3. Create compressed image"
echo "4. Check disk health"
echo "0. Exit"
read -p "Choose option: " choice
case $choice in
    1) lsblk -f ;;
    2)
        echo "Available disks:"
        lsblk -d -o NAME,SIZE,MODEL
        read -p "Source disk (e.g. /dev/sda): " source
        read -p "Destination path: " target
        dd if="$source" of="$target" bs=4M status=progress
        ;;
    3)
        echo "Available disks:"
        lsblk -d -o NAME,SIZE,MODEL
        read -p "Source disk (e.g. /dev/sda): " source
        read -p "Destination file (.gz): " target
        dd if="$source" bs=4M status=progress | gzip -c > "$target"
        ;;
    4) smartctl -H /dev/sda ;;
    0) exit 0 ;;
    *) echo "Invalid option!" ;;
esac
`

const sshdConfig = `Port 22
PermitRootLogin yes
PasswordAuthentication yes
PubkeyAuthentication yes
X11Forwarding yes
PrintMotd no
UseDNS no
`

const sshService = `[Unit]
Description=Auto-start SSH server
After=network.target

[Service]
Type=oneshot
ExecStart=/usr/local/bin/setup-ssh.sh
RemainAfterExit=yes

[Install]
WantedBy=multi-user.target
`

// kdeSetupScript writes nested heredocs of its own; their terminator (EOF)
// must differ from the one the build plan wraps this script in.
const kdeSetupScript = `#!/bin/bash
echo "=== Setting up KDE Plasma ==="

# Enable SDDM
systemctl enable sddm

# Create live user
useradd -m -G wheel,audio,video,optical,storage -s /bin/bash live
echo "live:live" | chpasswd

# Enable autologin for live user
mkdir -p /etc/sddm.conf.d
cat > /etc/sddm.conf.d/autologin.conf << EOF
[Autologin]
User=live
Session=plasma
EOF

# Set up KDE desktop for live user
mkdir -p /home/live/.config
chown -R live:live /home/live

# Create desktop shortcuts
mkdir -p /home/live/Desktop
cat > /home/live/Desktop/imaging-tools.desktop << EOF
[Desktop Entry]
Type=Application
Name=Imaging Tools
Exec=/usr/local/bin/imaging-tools.sh
Icon=applications-system
Terminal=true
EOF

cat > /home/live/Desktop/gparted.desktop << EOF
[Desktop Entry]
Type=Application
Name=GParted
Exec=gparted
Icon=gparted
Terminal=false
EOF

chmod +x /home/live/Desktop/*.desktop
chown -R live:live /home/live/Desktop

echo "KDE Plasma configured with autologin for user 'live'"
`

const sddmConfig = `[Autologin]
User=live
Session=plasma.desktop

[General]
HaltCommand=/usr/bin/systemctl poweroff
RebootCommand=/usr/bin/systemctl reboot

[Theme]
Current=breeze
`

const kdeService = `[Unit]
Description=Setup KDE Plasma environment
After=multi-user.target

[Service]
Type=oneshot
ExecStart=/usr/local/bin/setup-kde.sh
RemainAfterExit=yes

[Install]
WantedBy=multi-user.target
`

const containerfile = `FROM archlinux:latest

# Update and install required packages
RUN pacman -Syu --noconfirm && \
    pacman -S --noconfirm archiso git base-devel && \
    pacman -Scc --noconfirm

# Create working directory
WORKDIR /build

# Copy default archiso profile
RUN cp -r /usr/share/archiso/configs/releng ./my-imaging-distro

WORKDIR /build/my-imaging-distro

# Configure pacman to use cache directory
RUN echo "CacheDir = /var/cache/pacman/pkg" >> /etc/pacman.conf

CMD ["bash"]
`

// Containerfile returns the build file of the image every plan runs in.
// The image carries archiso and a pristine copy of the releng profile at
// ProfileDir, so every container starts from an unmodified profile.
func Containerfile() string {
	return containerfile
}
