// Package carmatch recommends used cars that fit a buyer's budget.
//
// A Client runs the filter, predict and rank pipeline in-process against
// two predictors: one estimating the sale price of a listing and one
// scoring how recommendable it is. Listings whose predicted price exceeds
// the budget are dropped; the rest are ranked by score.
//
//	price, _ := carmatch.LoadLinearModel("models/price.yaml")
//	score, _ := carmatch.LoadLinearModel("models/score.yaml")
//	client, _ := carmatch.New(price, score, carmatch.WithDefaultLimit(5))
//
//	res, _ := client.RecommendTable(ctx, header, records, carmatch.Query{
//	    Budget:           150,
//	    Make:             "Toyota",
//	    ExcludeFlood:     true,
//	    ExcludeCollision: true,
//	})
//	for _, item := range res.Items {
//	    fmt.Println(item.Rank, item.ID, item.PredictedPrice)
//	}
package carmatch
