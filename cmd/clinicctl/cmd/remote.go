package cmd

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

type remoteTarget struct {
	host    string // user@host
	port    string
	keyPath string
	unit    string
}

// RemoteCmd manages the systemd unit running the API on a deployed server.
func RemoteCmd() *cobra.Command {
	target := &remoteTarget{}

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Inspect and restart the deployed API service over SSH",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if target.host == "" {
				return fmt.Errorf("--host is required or set SSH_HOST env")
			}
			target.unit = serviceUnit(target.unit)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&target.host, "host", os.Getenv("SSH_HOST"), "SSH host (user@host) or set SSH_HOST env")
	cmd.PersistentFlags().StringVar(&target.port, "port", "22", "SSH port")
	cmd.PersistentFlags().StringVar(&target.keyPath, "key", "", "Path to SSH private key (default: ~/.ssh/id_ed25519)")
	cmd.PersistentFlags().StringVar(&target.unit, "unit", "docclinic", "systemd unit name")

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the service state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return target.run(cmd, "systemctl status --no-pager "+target.unit)
		},
	})

	var lines int
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent service logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return target.run(cmd, journalCommand(target.unit, lines))
		},
	}
	logsCmd.Flags().IntVarP(&lines, "lines", "n", 100, "number of log lines")
	cmd.AddCommand(logsCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Restart the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return target.run(cmd, "sudo systemctl restart "+target.unit+" && systemctl is-active "+target.unit)
		},
	})

	return cmd
}

func serviceUnit(name string) string {
	if !strings.HasSuffix(name, ".service") {
		name += ".service"
	}
	return name
}

func journalCommand(unit string, lines int) string {
	if lines <= 0 {
		lines = 100
	}
	return "journalctl --no-pager -o cat -u " + unit + " -n " + strconv.Itoa(lines)
}

func (t *remoteTarget) run(cmd *cobra.Command, command string) error {
	client, err := sshConnect(t.host, t.port, t.keyPath)
	if err != nil {
		return fmt.Errorf("ssh connect: %w", err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	output, err := session.CombinedOutput(command)
	fmt.Fprint(cmd.OutOrStdout(), string(output))
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}

func sshConnect(host, port, keyPath string) (*ssh.Client, error) {
	authMethods, err := getAuthMethods(keyPath)
	if err != nil {
		return nil, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	hostKeyCallback, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
	if err != nil {
		return nil, fmt.Errorf("load known_hosts (ssh to the host once first): %w", err)
	}

	user, hostname := splitTarget(host)
	config := &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
	}

	addr := net.JoinHostPort(hostname, port)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return client, nil
}

func getAuthMethods(keyPath string) ([]ssh.AuthMethod, error) {
	// Try ssh-agent first
	if keyPath == "" {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			conn, err := net.Dial("unix", sock)
			if err == nil {
				agentClient := agent.NewClient(conn)
				keys, err := agentClient.List()
				if err == nil && len(keys) > 0 {
					return []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)}, nil
				}
				conn.Close()
			}
		}
	}

	key, err := readSSHKey(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse key (use ssh-add to load passphrase-protected keys): %w", err)
	}

	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func readSSHKey(keyPath string) ([]byte, error) {
	if keyPath != "" {
		key, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read key %s: %w", keyPath, err)
		}
		return key, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	keyNames := []string{"id_ed25519", "id_rsa", "id_ecdsa"}
	for _, name := range keyNames {
		key, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err == nil {
			return key, nil
		}
	}

	return nil, fmt.Errorf("no SSH key found in ~/.ssh (tried: %v)", keyNames)
}

// splitTarget parses "user@host"; the user defaults to root.
func splitTarget(target string) (string, string) {
	user, host, ok := strings.Cut(target, "@")
	if !ok {
		return "root", target
	}
	return user, host
}
