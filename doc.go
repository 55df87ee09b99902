// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package gnmi is a gNMI client for network devices that speaks XPath.
//
// Paths are plain strings. ParseXPath turns XPath-like text such as
// /interfaces/interface[name=eth0]/config into structured gNMI paths and
// ParseDN does the same for distinguished names of the DME origin, e.g.
// sys/intf/phys[id=eth1/1]. Path.String renders them back.
//
// # Quick Start
//
//	client, err := gnmi.NewClient("192.168.1.1:57400",
//	    gnmi.Username("admin"),
//	    gnmi.Password("secret"),
//	    gnmi.DefaultOrigin(gnmi.OriginOpenConfig))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	res, err := client.Get(ctx, []string{"/interfaces/interface[name=eth0]/config"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	flat, err := res.Flatten(gnmi.DefaultFlattenOptions())
//	for _, e := range flat.Entries() {
//	    fmt.Println(e.Path, e.Value) // /interfaces/interface[name=eth0]/config/mtu 1500
//	}
//
// # Configuration Data
//
// Flattening and reconstruction are inverse operations. FlattenJSON reduces
// YANG JSON to one xpath per leaf; Reconstruct merges single-leaf fragments
// back into nested JSON; Consolidate groups fragments by list entry so that
// each entry becomes one update:
//
//	payloads, err := gnmi.Consolidate([]gnmi.ConfigFragment{
//	    gnmi.NewFragment("/acl/acl-sets/acl-set[name=a][type=ACL_IPV4]/config", "description", "edge"),
//	    gnmi.NewFragment("/acl/acl-sets/acl-set[name=a][type=ACL_IPV4]/acl-entries/acl-entry[sequence-id=10]/config", "sequence-id", 10),
//	})
//	updates, err := gnmi.BuildUpdates(payloads, gnmi.OriginOpenConfig, true)
//
// TranslateXMLPath and Client.SetEdits accept NETCONF style edits addressed
// with namespace qualified XML Path Language expressions.
//
// # Retries and Concurrency
//
// Transient gRPC errors are retried with exponential backoff; transport
// errors rebuild the connection first. Get, SubscribeOnce and Capabilities
// run in parallel, Set and its variants are serialized.
//
// # References
//
//   - gNMI Specification: https://github.com/openconfig/reference/blob/master/rpc/gnmi/gnmi-specification.md
//   - gNMI Path Conventions: https://github.com/openconfig/reference/blob/master/rpc/gnmi/gnmi-path-conventions.md
//   - gnmic: https://github.com/openconfig/gnmic
package gnmi
