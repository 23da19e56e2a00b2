// internal/jboss/parse.go - management response parsing
//
// Different JBoss/WildFly versions answer the same operation with different
// shapes: datasources come back either as name->resource maps or as plain
// name lists. Both forms are handled here.
package jboss

import (
	"encoding/json"
	"sort"
	"strings"

	"jbossmon/internal/store"
)

type datasourceDetails struct {
	Enabled           bool   `json:"enabled"`
	JNDIName          string `json:"jndi-name"`
	DriverName        string `json:"driver-name"`
	StatisticsEnabled bool   `json:"statistics-enabled"`
	Failed            bool   `json:"failed"`
}

type deploymentDetails struct {
	Enabled     bool   `json:"enabled"`
	RuntimeName string `json:"runtime-name"`
}

func parseDatasources(raw json.RawMessage) []store.Datasource {
	var root struct {
		DataSource   json.RawMessage `json:"data-source"`
		XADataSource json.RawMessage `json:"xa-data-source"`
	}
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil
	}

	datasources := parseDatasourceGroup(root.DataSource, "data-source")
	datasources = append(datasources, parseDatasourceGroup(root.XADataSource, "xa-data-source")...)

	sort.Slice(datasources, func(i, j int) bool {
		return datasources[i].Name < datasources[j].Name
	})
	return datasources
}

func parseDatasourceGroup(raw json.RawMessage, dsType string) []store.Datasource {
	if len(raw) == 0 {
		return nil
	}

	var datasources []store.Datasource

	// Map form: {"ExampleDS": {"enabled": true, ...}}
	var byName map[string]datasourceDetails
	if err := json.Unmarshal(raw, &byName); err == nil {
		for name, details := range byName {
			status := store.StatusDown
			if details.Enabled && !(details.StatisticsEnabled && details.Failed) {
				status = store.StatusUp
			}
			datasources = append(datasources, store.Datasource{
				Name:     name,
				Type:     dsType,
				Status:   status,
				JNDIName: details.JNDIName,
				Driver:   details.DriverName,
			})
		}
		return datasources
	}

	// List form: ["ExampleDS", "OtherDS"] - status cannot be determined.
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		for _, name := range names {
			datasources = append(datasources, store.Datasource{
				Name:   name,
				Type:   dsType,
				Status: store.StatusUp,
			})
		}
	}
	return datasources
}

func parseDeployments(raw json.RawMessage) []store.Deployment {
	var byName map[string]deploymentDetails
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil
	}

	var deployments []store.Deployment
	for name, details := range byName {
		status := store.StatusDown
		if details.Enabled {
			status = store.StatusUp
		}
		deployments = append(deployments, store.Deployment{
			Name:        name,
			RuntimeName: details.RuntimeName,
			Type:        deploymentType(name),
			Status:      status,
		})
	}

	sort.Slice(deployments, func(i, j int) bool {
		return deployments[i].Name < deployments[j].Name
	})
	return deployments
}

func deploymentType(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "unknown"
	}
	return strings.ToLower(name[idx+1:])
}
