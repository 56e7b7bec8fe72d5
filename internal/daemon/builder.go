package daemon

import (
	"context"
	"fmt"
	"time"

	"icc.tech/hil-supervisor/internal/component"
	"icc.tech/hil-supervisor/internal/config"
	"icc.tech/hil-supervisor/internal/driver/powersupply"
	"icc.tech/hil-supervisor/internal/driver/remoteshell"
	"icc.tech/hil-supervisor/internal/driver/serialline"
	"icc.tech/hil-supervisor/internal/pinger"
	"icc.tech/hil-supervisor/internal/vcu"
)

// psuDefaults decodes the synthetic "set_defaults" startup values a
// power_supply subcomponent's Params may carry (§6 PWR_SUPPLY_CMD
// "set_defaults").
type psuDefaults struct {
	Ch1Volt    float64 `mapstructure:"ch1_volt"`
	Ch2Volt    float64 `mapstructure:"ch2_volt"`
	Ch1Current float64 `mapstructure:"ch1_current"`
	Ch2Current float64 `mapstructure:"ch2_current"`
	Ch1Enable  bool    `mapstructure:"ch1_enable"`
	Ch2Enable  bool    `mapstructure:"ch2_enable"`
}

type psuParams struct {
	Addr     string      `mapstructure:"addr"`
	Defaults psuDefaults `mapstructure:"defaults"`
}

type shellParams struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	TunnelVia string `mapstructure:"tunnel_via"`
}

// buildVCU constructs one VCU's Component subtree from its configured
// subcomponents (§3 "VCU", §6 "Configuration"), opens every leaf Driver,
// and returns the VCU Component plus every Pinger created for the subtree
// so the caller can stop them on shutdown. The pingers are returned
// unstarted; the VCU starts its pinger when it is enabled.
func buildVCU(ctx context.Context, name string, cfg config.VCUConfig) (*component.Component, []*pinger.Pinger, error) {
	vcuComp := component.New(name, component.KindVCU)

	children, shells, err := buildChildren(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := openChildren(ctx, cfg, children, shells); err != nil {
		return nil, nil, err
	}
	for childName, child := range children {
		vcuComp.AdoptChild(childName, child)
	}

	var pg *pinger.Pinger
	var pingers []*pinger.Pinger
	if probe, version := compositeProbe(shells); probe != nil {
		pg = pinger.New(name, probe, version)
		pingers = append(pingers, pg)
	}

	rebuild := func() (map[string]*component.Component, error) {
		fresh, freshShells, err := buildChildren(cfg)
		if err != nil {
			return nil, err
		}
		if err := openChildren(context.Background(), cfg, fresh, freshShells); err != nil {
			return nil, err
		}
		return fresh, nil
	}
	reboot := rebootFunc(children)

	vcu.New(name, vcuComp, pg, reboot, rebuild)

	return vcuComp, pingers, nil
}

// buildChildren instantiates every subcomponent of one VCU from its
// config (§6), unopened. shells collects every remote_shell Driver by its
// local name so compositeProbe and tunnel_via resolution can find them.
func buildChildren(cfg config.VCUConfig) (map[string]*component.Component, map[string]*remoteshell.Driver, error) {
	children := make(map[string]*component.Component)
	shells := make(map[string]*remoteshell.Driver)

	for subName, sub := range cfg.Subcomponents {
		switch sub.Type {
		case "power_supply":
			var p psuParams
			if err := config.DecodeParams(sub.Params, &p); err != nil {
				return nil, nil, fmt.Errorf("vcu subcomponent %s: %w", subName, err)
			}
			defaults := powersupply.Defaults{
				Ch1Volt: p.Defaults.Ch1Volt, Ch2Volt: p.Defaults.Ch2Volt,
				Ch1Current: p.Defaults.Ch1Current, Ch2Current: p.Defaults.Ch2Current,
				Ch1Enable: p.Defaults.Ch1Enable, Ch2Enable: p.Defaults.Ch2Enable,
			}
			drv := powersupply.New(p.Addr, 10*time.Second, defaults)
			comp := component.New(subName, component.KindPowerSupply)
			comp.SetDriver(drv, component.PowerSupplyProjector, component.PowerSupplyInvokeMapper)
			children[subName] = comp

		case "serial_line":
			drv := serialline.New(serialline.DefaultOpener, 10*time.Second)
			comp := component.New(subName, component.KindSerialLine)
			comp.SetDriver(drv, component.SerialLineProjector, component.SerialInvokeMapper)
			children[subName] = comp

		case "remote_shell":
			drv := remoteshell.New()
			shells[subName] = drv
			comp := component.New(subName, component.KindRemoteShell)
			comp.SetDriver(drv, component.RemoteShellProjector, nil)
			children[subName] = comp

		case "vlan":
			children[subName] = component.New(subName, component.KindVLAN)

		case "generic":
			children[subName] = component.New(subName, component.KindGeneric)

		default:
			return nil, nil, fmt.Errorf("vcu subcomponent %s: unknown type %q", subName, sub.Type)
		}
	}

	return children, shells, nil
}

// openChildren opens every leaf Driver in children, resolving
// remote_shell tunnel_via references against shells (the subtree's own
// remote_shell drivers, built in the same buildChildren pass). It runs
// at initial setup and after every POWER_OFF rebuild (§4.3).
func openChildren(ctx context.Context, cfg config.VCUConfig, children map[string]*component.Component, shells map[string]*remoteshell.Driver) error {
	for subName, sub := range cfg.Subcomponents {
		comp, ok := children[subName]
		if !ok {
			continue
		}
		drv := comp.Driver()
		if drv == nil {
			continue
		}
		params := make(map[string]interface{}, len(sub.Params)+1)
		for k, v := range sub.Params {
			params[k] = v
		}
		if sub.Type == "remote_shell" {
			var p shellParams
			if err := config.DecodeParams(sub.Params, &p); err == nil && p.TunnelVia != "" {
				if tunnel, ok := shells[p.TunnelVia]; ok {
					params["tunnel"] = tunnel
				}
			}
		}
		if err := drv.Open(ctx, params); err != nil {
			return fmt.Errorf("vcu subcomponent %s: open: %w", subName, err)
		}
	}
	return nil
}

// compositeProbe builds a single ProbeFunc/VersionFunc pair over every
// remote_shell subcomponent a VCU owns (its SGA and tunneled HPA shell,
// GLOSSARY "SGA/HPA"). §4.3's "booted" trigger fires on "pinger signals
// both reachable": this probe only reports connected once every shell it
// knows about answers, collapsing the two-endpoint signal into the
// single latched connectivity field vcu.VCU already carries — VCU keeps
// one *pinger.Pinger field, so a rig with both an SGA and an HPA shell
// is watched by one composite pinger rather than two independent ones.
func compositeProbe(shells map[string]*remoteshell.Driver) (pinger.ProbeFunc, pinger.VersionFunc) {
	if len(shells) == 0 {
		return nil, nil
	}
	probe := func(ctx context.Context) (string, error) {
		var uname string
		for name, shell := range shells {
			out, err := shell.Run(ctx, "uname -a")
			if err != nil {
				return "", fmt.Errorf("probe %s: %w", name, err)
			}
			uname = out
		}
		return uname, nil
	}
	version := func(ctx context.Context) (string, error) {
		for _, shell := range shells {
			out, err := shell.Run(ctx, "cat /etc/os-release 2>/dev/null || true")
			if err == nil {
				return out, nil
			}
		}
		return "", fmt.Errorf("version: no shell answered")
	}
	return probe, version
}

// rebootFunc runs the known reboot verb (§4.3 "known reboot serial verb")
// against whichever child can carry it: a serial_line first, falling
// back to the first remote_shell if no serial line is configured.
func rebootFunc(children map[string]*component.Component) vcu.RebootFunc {
	return func(ctx context.Context) error {
		for _, c := range children {
			if c.Kind() == component.KindSerialLine {
				if drv := c.Driver(); drv != nil {
					return drv.Invoke(ctx, "reboot", "reboot")
				}
			}
		}
		for _, c := range children {
			if c.Kind() == component.KindRemoteShell {
				if drv := c.Driver(); drv != nil {
					return drv.Invoke(ctx, "reboot", "reboot")
				}
			}
		}
		return fmt.Errorf("no serial line or remote shell configured for reboot")
	}
}
