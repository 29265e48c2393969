package domain

import "time"

type StatsID string

// StatsSnapshot is one point-in-time aggregate. The newest snapshot by CreatedAt is
// the current reading; each calendar month gets its own snapshot.
type StatsSnapshot struct {
	ID           StatsID   `json:"_id" bson:"_id"`
	Users        int64     `json:"users" bson:"users"`
	Subscription int64     `json:"subscription" bson:"subscription"`
	Views        int64     `json:"views" bson:"views"`
	Period       string    `json:"period,omitempty" bson:"period"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

const statsPeriodLayout = "2006-01"

// StatsPeriod buckets a timestamp into its monthly period key.
func StatsPeriod(t time.Time) string {
	return t.UTC().Format(statsPeriodLayout)
}

// DashboardStats is the admin dashboard view over the snapshot log.
type DashboardStats struct {
	Stats                  []StatsSnapshot `json:"stats"`
	UsersCount             int64           `json:"usersCount"`
	SubscriptionCount      int64           `json:"subscriptionCount"`
	ViewsCount             int64           `json:"viewsCount"`
	UsersPercentage        float64         `json:"usersPercentage"`
	SubscriptionPercentage float64         `json:"subscriptionPercentage"`
	ViewsPercentage        float64         `json:"viewsPercentage"`
	UsersProfit            bool            `json:"usersProfit"`
	SubscriptionProfit     bool            `json:"subscriptionProfit"`
	ViewsProfit            bool            `json:"viewsProfit"`
}
