package api

import (
	"context"

	"github.com/WebsitesPages/Autoscan/app/comps"
	"github.com/WebsitesPages/Autoscan/app/database"
	"github.com/WebsitesPages/Autoscan/app/syncer"
)

// SyncTrigger runs one guarded sync pass on demand.
type SyncTrigger interface {
	Run(ctx context.Context) syncer.Result
}

var _ SyncTrigger = (*syncer.Guard)(nil)

type Handler struct {
	repo       database.ListingRepository
	guard      SyncTrigger
	aggregator *comps.Aggregator
	region     comps.Region

	kleinanzeigen *comps.KleinanzeigenProvider
	autoscout     *comps.AutoscoutProvider
	carwow        *comps.CarwowProvider
	mobile        *comps.MobileProvider
}
