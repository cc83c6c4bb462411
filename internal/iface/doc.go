// Package iface discovers the wireless interfaces present on the host.
//
// Discovery uses nl80211 through github.com/mdlayher/wifi, so it only
// reports interfaces the kernel knows to be wireless. The CLI uses it for
// the "interfaces" command and to pick every interface when scanning in
// batch mode without arguments.
package iface
