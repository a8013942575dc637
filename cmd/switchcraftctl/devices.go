package main

import (
	"context"
	"fmt"
	"os"

	"github.com/emesix/switchcraft/internal/handler"
	hbrocade "github.com/emesix/switchcraft/internal/handler/brocade"
	hopenwrt "github.com/emesix/switchcraft/internal/handler/openwrt"
	hzyxel "github.com/emesix/switchcraft/internal/handler/zyxel"
	"github.com/emesix/switchcraft/internal/inventory"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/transport"
)

// defaultCPUPort is the OpenWrt switch port preserved in every VLAN
// membership rewrite absent an inventory override (spec §4.1).
const defaultCPUPort = "0"

// enablePasswordEnvSuffix derives the enable-password env var name from an
// entry's login password_env: SW1_PASSWORD -> SW1_PASSWORD_ENABLE. Brocade
// is the only vendor with a separate enable secret (spec §4.1).
const enablePasswordEnvSuffix = "_ENABLE"

// buildHandler connects and wraps entry's transport(s) into the vendor
// handler the engine registers against. The CLI owns process lifetime, so
// connection happens eagerly here rather than lazily inside the engine.
func buildHandler(entry *inventory.Entry) (handler.Handler, error) {
	password := os.Getenv(entry.PasswordEnv)
	if password == "" && entry.PasswordEnv != "" {
		return nil, fmt.Errorf("environment variable %q is unset for device %q", entry.PasswordEnv, entry.DeviceID)
	}
	dev := entry.ToDevice()
	ctx := context.Background()

	switch entry.Transport {
	case model.TransportBrocadeTelnet:
		enablePassword := ""
		if entry.EnablePasswordRequired {
			enablePassword = os.Getenv(entry.PasswordEnv + enablePasswordEnvSuffix)
		}
		tp := transport.NewBrocadeTelnet(transport.BrocadeTelnetConfig{
			Device:         dev,
			LoginPassword:  password,
			EnablePassword: enablePassword,
		})
		h := hbrocade.New(entry.DeviceID, tp)
		return h, h.Reconnect(ctx)

	case model.TransportZyxelCLI, model.TransportZyxelHTTPS:
		reader := transport.NewZyxelSSH(transport.ZyxelSSHConfig{Device: dev, Password: password})
		writer := transport.NewZyxelHTTPS(transport.ZyxelHTTPSConfig{Device: dev, Password: password})
		h := hzyxel.New(entry.DeviceID, reader, writer)
		return h, h.Reconnect(ctx)

	case model.TransportOpenWrtSSH:
		tp := transport.NewOpenWrtSSH(transport.OpenWrtSSHConfig{
			Device:   dev,
			Username: entry.Username,
			Password: password,
		})
		h := hopenwrt.New(entry.DeviceID, tp, defaultCPUPort)
		return h, h.Reconnect(ctx)
	}

	return nil, fmt.Errorf("device %q: no handler for transport %q", entry.DeviceID, entry.Transport)
}
