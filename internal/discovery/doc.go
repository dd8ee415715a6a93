// Package discovery finds Home Assistant installations with mDNS.
//
// Home Assistant advertises "_home-assistant._tcp" with TXT records such as
// location_name, uuid, version, internal_url and base_url. The discovered
// URL is used to fill in home_assistant_url when the tools run outside the
// Supervisor network.
//
//	instances, err := discovery.ScanForInstances(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, inst := range instances {
//	    fmt.Println(inst.Name, inst.APIURL())
//	}
//
// Requires multicast on the local segment and UDP port 5353.
package discovery
